package ros

import (
	"reflect"
	"testing"
)

func TestLoadParamFromString(t *testing.T) {
	cases := []struct {
		in   string
		want interface{}
	}{
		{"42", int32(42)},
		{"-7", int32(-7)},
		{"0.5", 0.5},
		{"1e10", 1e10},
		{"4294967296", float64(4294967296)},
		{"true", true},
		{"false", false},
		{`"humble"`, "humble"},
		{"humble", "humble"},
		{"last_known_poses.txt", "last_known_poses.txt"},
		{"true story", "true story"},
		{"0.0,0.0", "0.0,0.0"},
		{"", ""},
		{"[1, 2.5]", []interface{}{int32(1), 2.5}},
		{"[[0, 1], [2, 3]]", []interface{}{
			[]interface{}{int32(0), int32(1)},
			[]interface{}{int32(2), int32(3)},
		}},
		{`{"x": 1, "frame": "map"}`, map[string]interface{}{"x": int32(1), "frame": "map"}},
	}
	for _, c := range cases {
		got := loadParamFromString(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("%q: expected %#v but got %#v", c.in, c.want, got)
		}
	}
}

func TestParamConversions(t *testing.T) {
	if f, err := ParamFloat64(int32(3)); err != nil || f != 3 {
		t.Error(f, err)
	}
	if f, err := ParamFloat64(0.25); err != nil || f != 0.25 {
		t.Error(f, err)
	}
	if _, err := ParamFloat64("0.25"); err == nil {
		t.Error("string accepted as number")
	}
	if b, err := ParamBool(true); err != nil || !b {
		t.Error(b, err)
	}
	if _, err := ParamBool(int32(1)); err == nil {
		t.Error("int accepted as bool")
	}
	if s, err := ParamString("jazzy"); err != nil || s != "jazzy" {
		t.Error(s, err)
	}
	if _, err := ParamString(1.5); err == nil {
		t.Error("float accepted as string")
	}
}
