// Package localization relocalizes a robot after restart: it asks the
// localizer to reinitialize around the last known pose and clears the global
// costmap built from the previous, possibly wrong, estimate.
package localization

import (
	"math"

	"github.com/edwinhayes/sendlocalization/msgs/geometry_msgs"
	"github.com/edwinhayes/sendlocalization/msgs/nav2_msgs"
	"github.com/edwinhayes/sendlocalization/msgs/std_srvs"
	"github.com/edwinhayes/sendlocalization/ros"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Status codes returned by SendLocalizationCmd.
const (
	StatusFailed     = 0
	StatusDispatched = 1
)

const (
	// ReinitializeGlobalLocalizationService spreads particles over the whole map.
	ReinitializeGlobalLocalizationService = "reinitialize_global_localization"
	// FastGlobalLocalizationService seeds particles from a Gaussian mixture (Humble).
	FastGlobalLocalizationService = "fast_global_localization"
	// ClearGlobalCostmapService drops every obstacle of the global costmap.
	ClearGlobalCostmapService = "global_costmap/clear_entirely_global_costmap"
	// InitialPoseTopic receives the last known pose when publish_initial_pose is set.
	InitialPoseTopic = "initialpose"

	initialYawVariance = (math.Pi / 12) * (math.Pi / 12)
)

// SendLocalization dispatches relocalization requests for one node.
type SendLocalization struct {
	node   ros.Node
	cfg    Config
	logger *logrus.Entry

	reinitialize ros.ServiceClient
	fast         ros.ServiceClient
	clearCostmap ros.ServiceClient
	initialPose  ros.Publisher
	seq          uint32
}

// NewSendLocalization creates the service clients, and the initial pose
// publisher if enabled, on node.
func NewSendLocalization(node ros.Node, cfg Config) (*SendLocalization, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &SendLocalization{
		node:         node,
		cfg:          cfg,
		logger:       node.Logger().WithField("module", "send_localization"),
		reinitialize: node.NewServiceClient(ReinitializeGlobalLocalizationService, std_srvs.SrvEmpty),
		clearCostmap: node.NewServiceClient(ClearGlobalCostmapService, nav2_msgs.SrvClearEntireCostmap),
	}
	if cfg.Distro == Humble {
		s.fast = node.NewServiceClient(FastGlobalLocalizationService, nav2_msgs.SrvGlobalLocalization)
	}
	if cfg.PublishInitialPose {
		pub, err := node.NewPublisher(InitialPoseTopic, geometry_msgs.MsgPoseWithCovarianceStamped)
		if err != nil {
			s.Shutdown()
			return nil, errors.Wrap(err, "advertising initial pose")
		}
		s.initialPose = pub
	}
	s.logger.Debugf("Configured for %s, pose file %s", cfg.Distro, cfg.PoseFile)
	return s, nil
}

// SendLocalizationCmd relocalizes once and reports StatusDispatched when
// both the localizer and the costmap accepted the request.
func (s *SendLocalization) SendLocalizationCmd() int {
	if err := s.Relocalize(); err != nil {
		s.logger.Errorf("Relocalization failed: %v", err)
		return StatusFailed
	}
	return StatusDispatched
}

// Relocalize calls the global localization service once and then clears
// the global costmap once.
func (s *SendLocalization) Relocalize() error {
	pose, poseErr := ReadPoseFile(s.cfg.PoseFile)
	if poseErr != nil {
		s.logger.Warnf("No usable last known pose: %v", poseErr)
	} else {
		s.logger.Infof("Last known pose is (%v)", pose)
	}

	if err := s.globalLocalization(pose, poseErr == nil); err != nil {
		return err
	}
	if err := s.call(s.clearCostmap, ClearGlobalCostmapService, new(nav2_msgs.ClearEntireCostmap)); err != nil {
		return err
	}
	s.logger.Info("Global costmap cleared")
	return nil
}

func (s *SendLocalization) globalLocalization(pose Pose, havePose bool) error {
	if s.cfg.Distro == Humble && havePose {
		seed, err := SeedAround(pose, s.cfg.SeedSigma, s.cfg.Anchors)
		if err == nil {
			srv := new(nav2_msgs.GlobalLocalization)
			srv.Request = nav2_msgs.GlobalLocalizationRequest{
				CenterX: seed.CenterX,
				CenterY: seed.CenterY,
				Sigma:   seed.Sigma,
				Weights: seed.Weights,
			}
			if err := s.call(s.fast, FastGlobalLocalizationService, srv); err != nil {
				return err
			}
			s.logger.Infof("Fast global localization seeded with %d components", seed.Len())
			return nil
		}
		s.logger.Warnf("Cannot seed around %v: %v", pose, err)
	}

	if err := s.call(s.reinitialize, ReinitializeGlobalLocalizationService, new(std_srvs.Empty)); err != nil {
		return err
	}
	s.logger.Info("Global localization reinitialized")
	if havePose && s.initialPose != nil {
		if err := s.publishInitialPose(pose); err != nil {
			s.logger.Warnf("Publishing initial pose failed: %v", err)
		}
	}
	return nil
}

func (s *SendLocalization) call(client ros.ServiceClient, name string, srv ros.Service) error {
	if err := client.WaitForService(s.cfg.ServiceTimeout); err != nil {
		return errors.Wrapf(err, "waiting for %s", name)
	}
	if err := client.Call(srv); err != nil {
		return errors.Wrapf(err, "calling %s", name)
	}
	return nil
}

func (s *SendLocalization) publishInitialPose(pose Pose) error {
	s.seq++
	msg := &geometry_msgs.PoseWithCovarianceStamped{}
	msg.Header.Seq = s.seq
	msg.Header.Stamp = ros.Now()
	msg.Header.FrameId = s.cfg.FrameID
	msg.Pose.Pose.Position.X = pose.X
	msg.Pose.Pose.Position.Y = pose.Y
	msg.Pose.Pose.Orientation.W = 1
	variance := s.cfg.SeedSigma * s.cfg.SeedSigma
	msg.Pose.Covariance[0] = variance
	msg.Pose.Covariance[7] = variance
	msg.Pose.Covariance[35] = initialYawVariance
	return s.initialPose.Publish(msg)
}

// Shutdown releases the clients and the initial pose publisher. The node
// itself belongs to the caller.
func (s *SendLocalization) Shutdown() {
	for _, c := range []ros.ServiceClient{s.reinitialize, s.fast, s.clearCostmap} {
		if c != nil {
			c.Shutdown()
		}
	}
	if s.initialPose != nil {
		s.initialPose.Shutdown()
		s.initialPose = nil
	}
}
