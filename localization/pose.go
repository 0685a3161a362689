package localization

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// DefaultPoseFile is where the last localized position is kept.
const DefaultPoseFile = "last_known_poses.txt"

// ErrInvalidPoseFile is returned when the pose file is not a single
// "x,y" line of finite decimals.
var ErrInvalidPoseFile = errors.New("invalid pose file")

// ASCII decimal with an optional exponent. strconv alone would also take
// hex floats, "Inf" and "NaN".
var decimalPattern = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

// Pose is a planar position in the map frame.
type Pose struct {
	X float64
	Y float64
}

func (p Pose) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Distance is the euclidean distance between two poses.
func (p Pose) Distance(o Pose) float64 {
	return p.Point().Sub(o.Point()).Norm()
}

func (p Pose) String() string {
	return formatCoord(p.X) + "," + formatCoord(p.Y)
}

func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParsePose parses the content of a pose file. A single trailing newline is
// allowed; spaces around the coordinates are ignored.
func ParsePose(content string) (Pose, error) {
	line := strings.TrimSuffix(content, "\n")
	line = strings.TrimSuffix(line, "\r")
	if strings.ContainsAny(line, "\r\n") {
		return Pose{}, errors.Wrap(ErrInvalidPoseFile, "more than one line")
	}
	fields := strings.Split(line, ",")
	if len(fields) != 2 {
		return Pose{}, errors.Wrapf(ErrInvalidPoseFile, "expected 2 fields but got %d", len(fields))
	}
	var coords [2]float64
	for i, field := range fields {
		field = strings.TrimSpace(field)
		if !decimalPattern.MatchString(field) {
			return Pose{}, errors.Wrapf(ErrInvalidPoseFile, "field %d: %q is not a decimal", i, field)
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Pose{}, errors.Wrapf(ErrInvalidPoseFile, "field %d: %v", i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Pose{}, errors.Wrapf(ErrInvalidPoseFile, "field %d is not finite", i)
		}
		coords[i] = v
	}
	return Pose{X: coords[0], Y: coords[1]}, nil
}

// ReadPoseFile loads the last known pose from path.
func ReadPoseFile(path string) (Pose, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return Pose{}, errors.Wrap(err, "reading pose file")
	}
	pose, err := ParsePose(string(content))
	if err != nil {
		return Pose{}, errors.Wrap(err, path)
	}
	return pose, nil
}

// WritePoseFile replaces path with "x,y\n". The file is written next to
// path and renamed so readers never see a partial line.
func WritePoseFile(path string, pose Pose) error {
	if math.IsNaN(pose.X) || math.IsNaN(pose.Y) || math.IsInf(pose.X, 0) || math.IsInf(pose.Y, 0) {
		return errors.Wrapf(ErrInvalidPoseFile, "pose %v is not finite", pose)
	}
	tmp, err := ioutil.TempFile(filepath.Dir(path), "."+filepath.Base(path)+".")
	if err != nil {
		return errors.Wrap(err, "creating pose file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(pose.String() + "\n"); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing pose file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing pose file")
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.Wrap(err, "writing pose file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "replacing pose file")
}
