package rostest

import (
	"reflect"
	"testing"

	"github.com/edwinhayes/sendlocalization/xmlrpc"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func call(t *testing.T, m *Master, method string, args ...interface{}) (int32, interface{}) {
	t.Helper()
	result, err := xmlrpc.Call(m.URI(), method, args...)
	if err != nil {
		t.Fatalf("%s: %v", method, err)
	}
	triplet, ok := result.([]interface{})
	if !ok || len(triplet) != 3 {
		t.Fatalf("%s: malformed result %v", method, result)
	}
	return triplet[0].(int32), triplet[2]
}

func TestServiceRegistry(t *testing.T) {
	m, err := NewMaster()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if code, _ := call(t, m, "lookupService", "/client", "/reinitialize_global_localization"); code != statusError {
		t.Error("unknown service resolved")
	}
	call(t, m, "registerService", "/service_test", "/reinitialize_global_localization",
		"rosrpc://127.0.0.1:5000", "http://127.0.0.1:6000/")
	code, uri := call(t, m, "lookupService", "/client", "/reinitialize_global_localization")
	if code != statusSuccess || uri != "rosrpc://127.0.0.1:5000" {
		t.Error(code, uri)
	}

	// A stale address does not remove a newer registration
	call(t, m, "unregisterService", "/service_test", "/reinitialize_global_localization", "rosrpc://127.0.0.1:4000")
	if _, ok := m.LookupService("/reinitialize_global_localization"); !ok {
		t.Error("service removed by stale unregister")
	}
	call(t, m, "unregisterService", "/service_test", "/reinitialize_global_localization", "rosrpc://127.0.0.1:5000")
	if services := m.Services(); len(services) != 0 {
		t.Error(services)
	}
}

func TestTopicRegistry(t *testing.T) {
	m, err := NewMaster()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	code, pubs := call(t, m, "registerSubscriber", "/recorder", "/amcl_pose",
		"geometry_msgs/PoseWithCovarianceStamped", "http://127.0.0.1:1/")
	if code != statusSuccess || len(pubs.([]interface{})) != 0 {
		t.Error(code, pubs)
	}
	// The subscriber API is unreachable; the update is dropped quietly.
	code, subs := call(t, m, "registerPublisher", "/amcl", "/amcl_pose",
		"geometry_msgs/PoseWithCovarianceStamped", "http://127.0.0.1:2/")
	if code != statusSuccess || !reflect.DeepEqual(subs, []interface{}{"http://127.0.0.1:1/"}) {
		t.Error(code, subs)
	}
	if m.NumPublishers("/amcl_pose") != 1 || m.NumSubscribers("/amcl_pose") != 1 {
		t.Error("registrations not counted")
	}
	call(t, m, "unregisterPublisher", "/amcl", "/amcl_pose", "http://127.0.0.1:2/")
	call(t, m, "unregisterSubscriber", "/recorder", "/amcl_pose", "http://127.0.0.1:1/")
	if m.NumPublishers("/amcl_pose") != 0 || m.NumSubscribers("/amcl_pose") != 0 {
		t.Error("registrations left behind")
	}
}

func TestParamServer(t *testing.T) {
	m, err := NewMaster()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	call(t, m, "setParam", "/send_localization", "/send_localization/seed_sigma", 0.5)
	call(t, m, "setParam", "/send_localization", "/send_localization/anchors",
		[]interface{}{[]interface{}{1.0, 2.0}})
	call(t, m, "setParam", "/send_localization", "/robot/frame_id", "map")

	code, v := call(t, m, "getParam", "/send_localization", "/send_localization/seed_sigma")
	if code != statusSuccess || v != 0.5 {
		t.Error(code, v)
	}
	code, tree := call(t, m, "getParam", "/send_localization", "/send_localization")
	if code != statusSuccess {
		t.Fatal(code)
	}
	if dict, ok := tree.(map[string]interface{}); !ok || dict["seed_sigma"] != 0.5 {
		t.Error(tree)
	}

	if _, has := call(t, m, "hasParam", "/send_localization", "/robot/frame_id"); has != true {
		t.Error("frame_id missing")
	}
	if code, key := call(t, m, "searchParam", "/robot/nav/send_localization", "frame_id"); code != statusSuccess || key != "/robot/frame_id" {
		t.Error(code, key)
	}
	if code, _ := call(t, m, "searchParam", "/other/node", "frame_id"); code != statusError {
		t.Error("frame_id found outside its namespace")
	}

	// Setting a dictionary replaces the namespace
	call(t, m, "setParam", "/send_localization", "/send_localization",
		map[string]interface{}{"pose_file": "poses.txt"})
	if _, ok := m.Param("/send_localization/seed_sigma"); ok {
		t.Error("old value survived a dictionary set")
	}
	if v, _ := m.Param("/send_localization/pose_file"); v != "poses.txt" {
		t.Error(v)
	}

	if code, _ := call(t, m, "deleteParam", "/send_localization", "/send_localization"); code != statusSuccess {
		t.Error(code)
	}
	if code, _ := call(t, m, "getParam", "/send_localization", "/send_localization/pose_file"); code != statusError {
		t.Error("deleted param still readable")
	}
	if code, _ := call(t, m, "deleteParam", "/send_localization", "/send_localization"); code != statusError {
		t.Error("deleting twice succeeded")
	}
}
