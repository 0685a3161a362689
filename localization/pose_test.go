package localization

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestParsePose(t *testing.T) {
	valid := map[string]Pose{
		"0.0,0.0\n":      {0, 0},
		"0,0":            {0, 0},
		"1.5,-2.25\n":    {1.5, -2.25},
		" 3.0 , 4.0 \n":  {3, 4},
		"1e2,2.5e-1\r\n": {100, 0.25},
		"-0.125,17.75\n": {-0.125, 17.75},
		"+2.,.5\n":       {2, 0.5},
	}
	for in, want := range valid {
		got, err := ParsePose(in)
		if err != nil {
			t.Errorf("%q: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %v but got %v", in, want, got)
		}
	}

	invalid := []string{
		"",
		"\n",
		"1.0\n",
		"1.0,2.0,3.0\n",
		"1.0,2.0\n3.0,4.0\n",
		"1.0,2.0\n\n",
		"x,2.0\n",
		"NaN,0\n",
		"0,Inf\n",
		"0x1p1,0\n",
		"0x10p0,0x1p-1\n",
		"1_000,0\n",
		"1e999,0\n",
		"1.0e,0\n",
	}
	for _, in := range invalid {
		if _, err := ParsePose(in); errors.Cause(err) != ErrInvalidPoseFile {
			t.Errorf("%q: expected ErrInvalidPoseFile but got %v", in, err)
		}
	}
}

func TestPoseFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "pose")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, DefaultPoseFile)

	if _, err := ReadPoseFile(path); err == nil {
		t.Error("missing file read without error")
	}

	if err := WritePoseFile(path, Pose{X: 1, Y: -2.5}); err != nil {
		t.Fatal(err)
	}
	content, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "1.0,-2.5\n" {
		t.Errorf("unexpected content %q", content)
	}
	pose, err := ReadPoseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if pose != (Pose{X: 1, Y: -2.5}) {
		t.Error(pose)
	}

	// No temporary files are left next to the pose file
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the pose file but found %d entries", len(entries))
	}
}

func TestWritePoseFileRejectsNonFinite(t *testing.T) {
	dir, err := ioutil.TempDir("", "pose")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, DefaultPoseFile)

	var nan Pose
	nan.X = nan.X / nan.Y // 0/0
	if err := WritePoseFile(path, nan); errors.Cause(err) != ErrInvalidPoseFile {
		t.Errorf("expected ErrInvalidPoseFile but got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("pose file created for an invalid pose")
	}
}

func TestPoseDistance(t *testing.T) {
	if d := (Pose{0, 0}).Distance(Pose{3, 4}); d != 5 {
		t.Error(d)
	}
}
