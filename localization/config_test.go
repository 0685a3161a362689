package localization

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r2"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.PoseFile != "last_known_poses.txt" || cfg.Distro != DefaultDistro {
		t.Errorf("%+v", cfg)
	}
}

func TestConfigUnmarshalJSON(t *testing.T) {
	cfg := DefaultConfig()
	data := []byte(`{
		"pose_file": "/var/lib/robot/poses.txt",
		"ros_distro": "humble",
		"seed_sigma": 0.3,
		"service_timeout": 2.5,
		"publish_initial_pose": true,
		"anchors": [[1, 2], [3.5, -4]],
		"min_distance": 0.1
	}`)
	if err := cfg.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	if cfg.PoseFile != "/var/lib/robot/poses.txt" || cfg.Distro != Humble || cfg.SeedSigma != 0.3 {
		t.Errorf("%+v", cfg)
	}
	if cfg.ServiceTimeout != 2500*time.Millisecond {
		t.Error(cfg.ServiceTimeout)
	}
	if !cfg.PublishInitialPose || cfg.MinDistance != 0.1 {
		t.Errorf("%+v", cfg)
	}
	if len(cfg.Anchors) != 2 || cfg.Anchors[1] != (r2.Point{X: 3.5, Y: -4}) {
		t.Error(cfg.Anchors)
	}
	// Absent keys keep their values
	if cfg.SaveInterval != DefaultSaveInterval || cfg.PoseTopic != DefaultPoseTopic {
		t.Errorf("%+v", cfg)
	}
}

func TestConfigUnmarshalJSONErrors(t *testing.T) {
	for _, data := range []string{
		`{"ros_distro": "rolling"}`,
		`{"seed_sigma": "wide"}`,
		`{"publish_initial_pose": "yes"}`,
		`{"anchors": [[1]]}`,
		`{"anchors": 3}`,
	} {
		cfg := DefaultConfig()
		if err := cfg.UnmarshalJSON([]byte(data)); err == nil {
			t.Errorf("%s accepted", data)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "send_localization.json")
	if err := ioutil.WriteFile(path, []byte(`{"save_interval": 30}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	if err := LoadConfigFile(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.SaveInterval != 30*time.Second {
		t.Error(cfg.SaveInterval)
	}
	if err := LoadConfigFile(filepath.Join(dir, "missing.json"), &cfg); err == nil {
		t.Error("missing file accepted")
	}
}

func TestConfigValidate(t *testing.T) {
	mutations := []func(*Config){
		func(c *Config) { c.PoseFile = "" },
		func(c *Config) { c.SeedSigma = 0 },
		func(c *Config) { c.ServiceTimeout = 0 },
		func(c *Config) { c.SaveInterval = -time.Second },
		func(c *Config) { c.MinDistance = -1 },
	}
	for i, mutate := range mutations {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("mutation %d accepted", i)
		}
	}
}
