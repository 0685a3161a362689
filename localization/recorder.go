package localization

import (
	"sync"
	"time"

	"github.com/edwinhayes/sendlocalization/msgs/geometry_msgs"
	"github.com/edwinhayes/sendlocalization/ros"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PoseRecorder keeps the pose file up to date from the localizer output so
// that the next SendLocalization run has a pose to seed from.
type PoseRecorder struct {
	cfg    Config
	sub    ros.Subscriber
	logger *logrus.Entry
	now    func() time.Time

	mu        sync.Mutex
	last      Pose
	haveLast  bool
	saved     Pose
	haveSaved bool
	savedAt   time.Time
	closed    bool
}

// NewPoseRecorder subscribes to cfg.PoseTopic. Poses are handled on the
// node's spin loop.
func NewPoseRecorder(node ros.Node, cfg Config) (*PoseRecorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &PoseRecorder{
		cfg:    cfg,
		logger: node.Logger().WithField("module", "pose_recorder"),
		now:    time.Now,
	}
	sub, err := node.NewSubscriber(cfg.PoseTopic, geometry_msgs.MsgPoseWithCovarianceStamped, r.onPose)
	if err != nil {
		return nil, errors.Wrapf(err, "subscribing to %s", cfg.PoseTopic)
	}
	r.sub = sub
	return r, nil
}

func (r *PoseRecorder) onPose(msg *geometry_msgs.PoseWithCovarianceStamped) {
	pose := Pose{X: msg.Pose.Pose.Position.X, Y: msg.Pose.Pose.Position.Y}
	if err := r.Record(pose); err != nil {
		r.logger.Errorf("Saving pose %v: %v", pose, err)
	}
}

// Record notes pose and writes it when the robot moved at least
// MinDistance since the last write, or SaveInterval passed and the pose
// changed.
func (r *PoseRecorder) Record(pose Pose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.last, r.haveLast = pose, true
	now := r.now()
	if r.haveSaved {
		moved := pose.Distance(r.saved)
		if moved == 0 {
			return nil
		}
		if moved < r.cfg.MinDistance && now.Sub(r.savedAt) < r.cfg.SaveInterval {
			return nil
		}
	}
	return r.save(pose, now)
}

// must hold r.mu
func (r *PoseRecorder) save(pose Pose, now time.Time) error {
	if err := WritePoseFile(r.cfg.PoseFile, pose); err != nil {
		return err
	}
	r.saved, r.haveSaved, r.savedAt = pose, true, now
	r.logger.Debugf("Saved pose %v", pose)
	return nil
}

// LastPose returns the most recent pose received.
func (r *PoseRecorder) LastPose() (Pose, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.haveLast
}

// Close unsubscribes and writes the last pose if it was not saved yet.
func (r *PoseRecorder) Close() error {
	if r.sub != nil {
		r.sub.Shutdown()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.haveLast && (!r.haveSaved || r.last != r.saved) {
		return r.save(r.last, r.now())
	}
	return nil
}
