package localization

import (
	"io/ioutil"
	"time"

	"github.com/buger/jsonparser"
	"github.com/edwinhayes/sendlocalization/ros"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

const (
	DefaultServiceTimeout = 5 * time.Second
	DefaultSaveInterval   = 10 * time.Second
	DefaultMinDistance    = 0.25
	DefaultPoseTopic      = "amcl_pose"
	DefaultFrameID        = "map"
)

// Config holds the node settings. Durations are given in seconds in config
// files and parameters.
type Config struct {
	PoseFile           string
	Distro             Distro
	SeedSigma          float64
	Anchors            []r2.Point
	ServiceTimeout     time.Duration
	PublishInitialPose bool
	FrameID            string

	PoseTopic    string
	SaveInterval time.Duration
	MinDistance  float64
}

func DefaultConfig() Config {
	return Config{
		PoseFile:       DefaultPoseFile,
		Distro:         DefaultDistro,
		SeedSigma:      DefaultSeedSigma,
		ServiceTimeout: DefaultServiceTimeout,
		FrameID:        DefaultFrameID,
		PoseTopic:      DefaultPoseTopic,
		SaveInterval:   DefaultSaveInterval,
		MinDistance:    DefaultMinDistance,
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Validate rejects settings the node cannot run with.
func (cfg *Config) Validate() error {
	switch {
	case cfg.PoseFile == "":
		return errors.New("pose_file must not be empty")
	case !(cfg.SeedSigma > 0):
		return errors.Errorf("seed_sigma must be positive, got %v", cfg.SeedSigma)
	case cfg.ServiceTimeout <= 0:
		return errors.Errorf("service_timeout must be positive, got %v", cfg.ServiceTimeout)
	case cfg.SaveInterval <= 0:
		return errors.Errorf("save_interval must be positive, got %v", cfg.SaveInterval)
	case cfg.MinDistance < 0:
		return errors.Errorf("min_distance must not be negative, got %v", cfg.MinDistance)
	}
	return nil
}

// LoadConfigFile overlays the JSON object in path onto cfg.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config file")
	}
	return errors.Wrap(cfg.UnmarshalJSON(data), path)
}

// UnmarshalJSON overlays the keys present in data; absent keys keep their
// current value.
func (cfg *Config) UnmarshalJSON(data []byte) error {
	var err error
	stringField := func(key string, apply func(string) error) {
		if err != nil {
			return
		}
		v, e := jsonparser.GetString(data, key)
		if e == jsonparser.KeyPathNotFoundError {
			return
		}
		if e != nil {
			err = errors.Wrapf(e, "key %s", key)
			return
		}
		err = apply(v)
	}
	floatField := func(key string, apply func(float64)) {
		if err != nil {
			return
		}
		v, e := jsonparser.GetFloat(data, key)
		if e == jsonparser.KeyPathNotFoundError {
			return
		}
		if e != nil {
			err = errors.Wrapf(e, "key %s", key)
			return
		}
		apply(v)
	}

	stringField("pose_file", func(v string) error { cfg.PoseFile = v; return nil })
	stringField("ros_distro", func(v string) (e error) { cfg.Distro, e = ParseDistro(v); return })
	stringField("frame_id", func(v string) error { cfg.FrameID = v; return nil })
	stringField("pose_topic", func(v string) error { cfg.PoseTopic = v; return nil })
	floatField("seed_sigma", func(v float64) { cfg.SeedSigma = v })
	floatField("service_timeout", func(v float64) { cfg.ServiceTimeout = seconds(v) })
	floatField("save_interval", func(v float64) { cfg.SaveInterval = seconds(v) })
	floatField("min_distance", func(v float64) { cfg.MinDistance = v })
	if err != nil {
		return err
	}

	if v, e := jsonparser.GetBoolean(data, "publish_initial_pose"); e == nil {
		cfg.PublishInitialPose = v
	} else if e != jsonparser.KeyPathNotFoundError {
		return errors.Wrap(e, "key publish_initial_pose")
	}

	raw, dataType, _, e := jsonparser.Get(data, "anchors")
	if e == jsonparser.KeyPathNotFoundError {
		return nil
	}
	if e != nil {
		return errors.Wrap(e, "key anchors")
	}
	if dataType != jsonparser.Array {
		return errors.New("anchors must be an array of [x, y] pairs")
	}
	var anchors []r2.Point
	_, e = jsonparser.ArrayEach(raw, func(item []byte, itemType jsonparser.ValueType, _ int, itemErr error) {
		if err != nil {
			return
		}
		if itemErr != nil {
			err = itemErr
			return
		}
		x, ex := jsonparser.GetFloat(item, "[0]")
		y, ey := jsonparser.GetFloat(item, "[1]")
		if itemType != jsonparser.Array || ex != nil || ey != nil {
			err = errors.Errorf("anchor %s is not an [x, y] pair", item)
			return
		}
		anchors = append(anchors, r2.Point{X: x, Y: y})
	})
	if e != nil {
		return errors.Wrap(e, "key anchors")
	}
	if err != nil {
		return err
	}
	cfg.Anchors = anchors
	return nil
}

// paramLoader reads private parameters of a node, skipping unset ones.
type paramLoader struct {
	node ros.Node
	err  error
}

func (l *paramLoader) get(key string) (interface{}, bool) {
	if l.err != nil {
		return nil, false
	}
	has, err := l.node.HasParam(key)
	if err != nil {
		l.err = errors.Wrapf(err, "checking %s", key)
		return nil, false
	}
	if !has {
		return nil, false
	}
	v, err := l.node.GetParam(key)
	if err != nil {
		l.err = errors.Wrapf(err, "reading %s", key)
		return nil, false
	}
	return v, true
}

func (l *paramLoader) setErr(key string, err error) {
	if err != nil && l.err == nil {
		l.err = errors.Wrapf(err, "parameter %s", key)
	}
}

func (l *paramLoader) str(key string, apply func(string) error) {
	if v, ok := l.get(key); ok {
		s, err := ros.ParamString(v)
		if err == nil {
			err = apply(s)
		}
		l.setErr(key, err)
	}
}

func (l *paramLoader) float(key string, apply func(float64)) {
	if v, ok := l.get(key); ok {
		f, err := ros.ParamFloat64(v)
		if err == nil {
			apply(f)
		}
		l.setErr(key, err)
	}
}

// LoadParams overlays the node's private parameters onto cfg.
func (cfg *Config) LoadParams(node ros.Node) error {
	l := &paramLoader{node: node}
	l.str("~pose_file", func(v string) error { cfg.PoseFile = v; return nil })
	l.str("~ros_distro", func(v string) (err error) { cfg.Distro, err = ParseDistro(v); return })
	l.float("~seed_sigma", func(v float64) { cfg.SeedSigma = v })
	l.float("~service_timeout", func(v float64) { cfg.ServiceTimeout = seconds(v) })
	if v, ok := l.get("~publish_initial_pose"); ok {
		b, err := ros.ParamBool(v)
		cfg.PublishInitialPose = b
		l.setErr("~publish_initial_pose", err)
	}
	l.float("~save_interval", func(v float64) { cfg.SaveInterval = seconds(v) })
	l.float("~min_distance", func(v float64) { cfg.MinDistance = v })
	l.str("~frame_id", func(v string) error { cfg.FrameID = v; return nil })
	l.str("~pose_topic", func(v string) error { cfg.PoseTopic = v; return nil })
	if v, ok := l.get("~anchors"); ok {
		anchors, err := paramAnchors(v)
		if err == nil {
			cfg.Anchors = anchors
		}
		l.setErr("~anchors", err)
	}
	return l.err
}

func paramAnchors(v interface{}) ([]r2.Point, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, errors.Errorf("%v is not a list of [x, y] pairs", v)
	}
	anchors := make([]r2.Point, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, errors.Errorf("anchor %v is not an [x, y] pair", item)
		}
		x, err := ros.ParamFloat64(pair[0])
		if err != nil {
			return nil, err
		}
		y, err := ros.ParamFloat64(pair[1])
		if err != nil {
			return nil, err
		}
		anchors = append(anchors, r2.Point{X: x, Y: y})
	}
	return anchors, nil
}
