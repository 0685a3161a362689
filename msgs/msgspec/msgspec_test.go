package msgspec

import (
	"testing"
)

func TestLoadMsgFields(t *testing.T) {
	r := NewRegistry()
	spec, err := r.LoadMsg("test_msgs/Fields", `# comment line
int32 CONST_A = 42  # trailing comment
string GREETING = hello # world
float64[36] covariance
uint8[] data
time stamp   # trailing comment
`)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Constants) != 2 {
		t.Fatalf("constants: %+v", spec.Constants)
	}
	if c := spec.Constants[0]; c.Name != "CONST_A" || c.ValueText != "42" {
		t.Errorf("%+v", c)
	}
	if c := spec.Constants[1]; c.ValueText != "hello # world" {
		t.Errorf("string constant should keep comment chars, got %q", c.ValueText)
	}
	expected := []string{"float64[36] covariance", "uint8[] data", "time stamp"}
	if len(spec.Fields) != len(expected) {
		t.Fatalf("fields: %+v", spec.Fields)
	}
	for i, f := range spec.Fields {
		if f.String() != expected[i] {
			t.Errorf("field %d: expected %q, got %q", i, expected[i], f.String())
		}
	}
}

func TestMD5Sum(t *testing.T) {
	r := NewRegistry()
	header, err := r.LoadMsg(HeaderFullName, "uint32 seq\ntime stamp\nstring frame_id\n")
	if err != nil {
		t.Fatal(err)
	}
	if header.MD5Sum != "2176decaecbce78abc3b96ef049fabed" {
		t.Errorf("Header md5sum %s", header.MD5Sum)
	}
	if _, err := r.LoadMsg("geometry_msgs/Point", "float64 x\nfloat64 y\nfloat64 z"); err != nil {
		t.Fatal(err)
	}
	// Bare Header resolves to std_msgs, bare Point to the own package.
	stamped, err := r.LoadMsg("geometry_msgs/PointStamped", "Header header\nPoint point\n")
	if err != nil {
		t.Fatal(err)
	}
	if stamped.MD5Sum != "c63aecb41bfdfd6b7e1fac37c7cbe7bf" {
		t.Errorf("PointStamped md5sum %s", stamped.MD5Sum)
	}
	if f := stamped.Fields[1]; f.FullType() != "geometry_msgs/Point" {
		t.Error(f.FullType())
	}
}

func TestMissingDependency(t *testing.T) {
	r := NewRegistry()
	if _, err := r.LoadMsg("geometry_msgs/Pose", "Point position\nQuaternion orientation"); err == nil {
		t.Error("expected error for unloaded nested type")
	}
	if _, ok := r.Lookup("geometry_msgs/Pose"); ok {
		t.Error("failed spec must not be registered")
	}
}

func TestSyntaxError(t *testing.T) {
	for _, text := range []string{
		"float64",
		"float64 x y",
		"float64[x] values",
		"float64 1x",
		"time T = 3",
		"bad-type x",
	} {
		_, err := NewRegistry().LoadMsg("test_msgs/Bad", "int32 ok\n"+text)
		syntaxErr, ok := err.(*SyntaxError)
		if !ok {
			t.Errorf("%q: expected *SyntaxError, got %v", text, err)
			continue
		}
		if syntaxErr.Line != 2 {
			t.Errorf("%q: expected line 2, got %d", text, syntaxErr.Line)
		}
	}
	if _, err := NewRegistry().LoadMsg("NoPackage", ""); err == nil {
		t.Error("expected error for unqualified name")
	}
}

func TestLoadSrv(t *testing.T) {
	r := NewRegistry()
	empty, err := r.LoadSrv("std_srvs/Empty", "---")
	if err != nil {
		t.Fatal(err)
	}
	if empty.MD5Sum != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Error(empty.MD5Sum)
	}
	srv, err := r.LoadSrv("rospy_tutorials/AddTwoInts", "int64 a\nint64 b\n---\nint64 sum\n")
	if err != nil {
		t.Fatal(err)
	}
	if srv.MD5Sum != "6a2e34150c00229791cc89ff309fff21" {
		t.Error(srv.MD5Sum)
	}
	if srv.Request.FullName != "rospy_tutorials/AddTwoIntsRequest" || len(srv.Response.Fields) != 1 {
		t.Errorf("%+v", srv)
	}
	if _, err := r.LoadSrv("test_srvs/NoSeparator", "int64 a\n"); err == nil {
		t.Error("expected error for missing separator")
	}
}
