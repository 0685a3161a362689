package localization

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/edwinhayes/sendlocalization/msgs/geometry_msgs"
	"github.com/edwinhayes/sendlocalization/msgs/nav2_msgs"
	"github.com/edwinhayes/sendlocalization/msgs/std_srvs"
	"github.com/edwinhayes/sendlocalization/ros"
	"github.com/edwinhayes/sendlocalization/ros/rostest"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixture runs a master, the node under test and a service_test node
// providing mock localization and costmap services.
type fixture struct {
	t        *testing.T
	dir      string
	master   *rostest.Master
	node     ros.Node
	testNode ros.Node
	spinDone chan struct{}
	cfg      Config

	noCostmap bool

	mu           sync.Mutex
	reinitCalls  int
	fastCalls    int
	clearCalls   int
	fastRequests []nav2_msgs.GlobalLocalizationRequest
	clearErr     error
}

type fixtureOption func(*fixture)

func withoutCostmap() fixtureOption {
	return func(f *fixture) { f.noCostmap = true }
}

func newFixture(t *testing.T, distro Distro, opts ...fixtureOption) *fixture {
	t.Helper()
	dir, err := ioutil.TempDir("", "send_localization")
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{t: t, dir: dir, spinDone: make(chan struct{})}
	for _, opt := range opts {
		opt(f)
	}

	f.cfg = DefaultConfig()
	f.cfg.Distro = distro
	f.cfg.PoseFile = filepath.Join(dir, DefaultPoseFile)
	f.cfg.ServiceTimeout = 2 * time.Second
	if f.noCostmap {
		f.cfg.ServiceTimeout = 300 * time.Millisecond
	}
	f.writePoseFile("0.0,0.0\n")

	if f.master, err = rostest.NewMaster(); err != nil {
		t.Fatal(err)
	}
	args := []string{"__master:=" + f.master.URI(), "__ip:=127.0.0.1"}
	if f.node, err = ros.NewNode("send_localization", args); err != nil {
		t.Fatal(err)
	}
	if f.testNode, err = ros.NewNode("service_test", args); err != nil {
		t.Fatal(err)
	}
	go func() {
		defer close(f.spinDone)
		f.testNode.Spin()
	}()

	f.advertise(FastGlobalLocalizationService, nav2_msgs.SrvGlobalLocalization,
		func(srv *nav2_msgs.GlobalLocalization) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.fastCalls++
			f.fastRequests = append(f.fastRequests, srv.Request)
			return nil
		})
	f.advertise(ReinitializeGlobalLocalizationService, std_srvs.SrvEmpty,
		func(srv *std_srvs.Empty) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.reinitCalls++
			return nil
		})
	if !f.noCostmap {
		f.advertise(ClearGlobalCostmapService, nav2_msgs.SrvClearEntireCostmap,
			func(srv *nav2_msgs.ClearEntireCostmap) error {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.clearCalls++
				return f.clearErr
			})
	}
	return f
}

func (f *fixture) advertise(service string, srvType ros.ServiceType, handler interface{}) {
	if _, err := f.testNode.NewServiceServer(service, srvType, handler); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) writePoseFile(content string) {
	if err := ioutil.WriteFile(f.cfg.PoseFile, []byte(content), 0644); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) close() {
	f.node.Shutdown()
	f.testNode.Shutdown()
	<-f.spinDone
	if services := f.master.Services(); len(services) != 0 {
		f.t.Errorf("services left registered: %v", services)
	}
	f.master.Close()
	os.RemoveAll(f.dir)
}

func (f *fixture) counts() (reinit, fast, clear int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reinitCalls, f.fastCalls, f.clearCalls
}

func (f *fixture) sendLocalization() *SendLocalization {
	s, err := NewSendLocalization(f.node, f.cfg)
	if err != nil {
		f.t.Fatal(err)
	}
	return s
}

func TestSendLocalizationJazzy(t *testing.T) {
	f := newFixture(t, Jazzy)
	defer f.close()
	s := f.sendLocalization()
	defer s.Shutdown()

	if status := s.SendLocalizationCmd(); status != StatusDispatched {
		t.Fatalf("expected %d but got %d", StatusDispatched, status)
	}
	reinit, fast, clear := f.counts()
	if reinit != 1 {
		t.Errorf("reinitialize_global_localization called %d times", reinit)
	}
	if fast != 0 {
		t.Errorf("fast_global_localization called %d times", fast)
	}
	if clear != 1 {
		t.Errorf("clear_entirely_global_costmap called %d times", clear)
	}
}

func TestSendLocalizationHumble(t *testing.T) {
	f := newFixture(t, Humble)
	defer f.close()
	s := f.sendLocalization()
	defer s.Shutdown()

	if status := s.SendLocalizationCmd(); status != StatusDispatched {
		t.Fatalf("expected %d but got %d", StatusDispatched, status)
	}
	reinit, fast, clear := f.counts()
	if fast != 1 || reinit != 0 || clear != 1 {
		t.Errorf("unexpected calls: fast %d, reinitialize %d, clear %d", fast, reinit, clear)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	req := f.fastRequests[0]
	if len(req.CenterX) == 0 || len(req.CenterY) == 0 || len(req.Sigma) == 0 || len(req.Weights) == 0 {
		t.Errorf("empty seed in request %+v", req)
	}
	if req.CenterX[0] != 0 || req.CenterY[0] != 0 {
		t.Errorf("seed not centered on the last known pose: %+v", req)
	}
}

func TestSendLocalizationHumbleWithAnchors(t *testing.T) {
	f := newFixture(t, Humble)
	defer f.close()
	f.writePoseFile("2.0,3.0\n")
	f.cfg.Anchors = []r2.Point{{X: 10, Y: 10}, {X: -5, Y: 0}}
	s := f.sendLocalization()
	defer s.Shutdown()

	if status := s.SendLocalizationCmd(); status != StatusDispatched {
		t.Fatalf("expected %d but got %d", StatusDispatched, status)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	req := f.fastRequests[0]
	if len(req.Weights) != 3 || req.CenterX[0] != 2 || req.CenterY[0] != 3 {
		t.Errorf("unexpected seed %+v", req)
	}
}

func TestSendLocalizationHumbleWithoutPose(t *testing.T) {
	for name, content := range map[string]string{
		"missing":   "",
		"malformed": "not a pose\n",
		"hex":       "0x1p1,0\n",
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, Humble)
			defer f.close()
			if content == "" {
				os.Remove(f.cfg.PoseFile)
			} else {
				f.writePoseFile(content)
			}
			s := f.sendLocalization()
			defer s.Shutdown()

			if status := s.SendLocalizationCmd(); status != StatusDispatched {
				t.Fatalf("expected %d but got %d", StatusDispatched, status)
			}
			reinit, fast, clear := f.counts()
			if reinit != 1 || fast != 0 || clear != 1 {
				t.Errorf("unexpected calls: fast %d, reinitialize %d, clear %d", fast, reinit, clear)
			}
		})
	}
}

func TestSendLocalizationCostmapMissing(t *testing.T) {
	f := newFixture(t, Jazzy, withoutCostmap())
	defer f.close()
	s := f.sendLocalization()
	defer s.Shutdown()

	if status := s.SendLocalizationCmd(); status != StatusFailed {
		t.Fatalf("expected %d but got %d", StatusFailed, status)
	}
	err := s.Relocalize()
	if errors.Cause(err) != ros.ErrServiceNotAvailable {
		t.Errorf("expected ErrServiceNotAvailable but got %v", err)
	}
}

func TestSendLocalizationServiceFailure(t *testing.T) {
	f := newFixture(t, Jazzy)
	defer f.close()
	f.mu.Lock()
	f.clearErr = errors.New("costmap is locked")
	f.mu.Unlock()
	s := f.sendLocalization()
	defer s.Shutdown()

	if status := s.SendLocalizationCmd(); status != StatusFailed {
		t.Fatalf("expected %d but got %d", StatusFailed, status)
	}
	_, ok := errors.Cause(s.Relocalize()).(*ros.ServiceError)
	if !ok {
		t.Error("service error not reported")
	}
}

func TestSendLocalizationPublishesInitialPose(t *testing.T) {
	f := newFixture(t, Jazzy)
	defer f.close()
	f.writePoseFile("4.0,-1.5\n")
	f.cfg.PublishInitialPose = true

	poses := make(chan *geometry_msgs.PoseWithCovarianceStamped, 1)
	_, err := f.testNode.NewSubscriber(InitialPoseTopic, geometry_msgs.MsgPoseWithCovarianceStamped,
		func(msg *geometry_msgs.PoseWithCovarianceStamped) {
			select {
			case poses <- msg:
			default:
			}
		})
	if err != nil {
		t.Fatal(err)
	}
	s := f.sendLocalization()
	defer s.Shutdown()
	waitFor(t, func() bool { return s.initialPose.GetNumSubscribers() > 0 })

	if status := s.SendLocalizationCmd(); status != StatusDispatched {
		t.Fatalf("expected %d but got %d", StatusDispatched, status)
	}
	select {
	case msg := <-poses:
		if msg.Pose.Pose.Position.X != 4 || msg.Pose.Pose.Position.Y != -1.5 || msg.Header.FrameId != "map" {
			t.Errorf("unexpected initial pose %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("initial pose not received")
	}
}

func TestConfigLoadParams(t *testing.T) {
	f := newFixture(t, Jazzy)
	defer f.close()
	for key, value := range map[string]interface{}{
		"~pose_file":            "/tmp/poses.txt",
		"~ros_distro":           "humble",
		"~seed_sigma":           int32(2),
		"~service_timeout":      1.5,
		"~publish_initial_pose": true,
		"~anchors":              []interface{}{[]interface{}{int32(1), 2.5}},
	} {
		if err := f.node.SetParam(key, value); err != nil {
			t.Fatal(err)
		}
	}
	cfg := DefaultConfig()
	if err := cfg.LoadParams(f.node); err != nil {
		t.Fatal(err)
	}
	if cfg.PoseFile != "/tmp/poses.txt" || cfg.Distro != Humble || cfg.SeedSigma != 2 ||
		cfg.ServiceTimeout != 1500*time.Millisecond || !cfg.PublishInitialPose {
		t.Errorf("%+v", cfg)
	}
	if len(cfg.Anchors) != 1 || cfg.Anchors[0].X != 1 || cfg.Anchors[0].Y != 2.5 {
		t.Error(cfg.Anchors)
	}

	if err := f.node.SetParam("~ros_distro", "rolling"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.LoadParams(f.node); err == nil {
		t.Error("unknown distro accepted")
	}
}

// Setup and teardown must be repeatable; goleak checks nothing survives.
func TestFixtureRepeatable(t *testing.T) {
	for i := 0; i < 3; i++ {
		f := newFixture(t, DefaultDistro)
		s := f.sendLocalization()
		if status := s.SendLocalizationCmd(); status != StatusDispatched {
			t.Errorf("round %d: expected %d but got %d", i, StatusDispatched, status)
		}
		s.Shutdown()
		f.close()
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
