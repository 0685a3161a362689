package ros

import (
	"testing"
)

func TestNameValidation(t *testing.T) {
	// Positive testing
	positives := [...]string{
		"",
		"/",
		"~",
		"foo",
		"foo/",
		"foo/bar",
		"foo/bar/",
		"foo_0/bar1_/",
		"/foo",
		"/foo/",
		"/foo/bar",
		"/foo/bar/",
		"~foo",
		"~foo/",
		"~foo/bar",
		"~foo/bar/",
		"global_costmap/clear_entirely_global_costmap",
	}
	for _, p := range positives {
		if !isValidName(p) {
			t.Error(p)
		}
	}

	// Negative testing
	negatives := [...]string{
		"foo//bar",
		"^foo//bar",
		"//foo",
		"0foo",
		"_0foo",
		"foo/0bar",
		"foo/_bar",
		"foo/~bar",
		"foo bar",
	}
	for _, n := range negatives {
		if isValidName(n) {
			t.Error(n)
		}
	}
}

func TestCanonicalizeName(t *testing.T) {
	if canonicalizeName("/") != "/" {
		t.Fail()
	}

	if canonicalizeName("/foo//bar/") != "/foo/bar" {
		t.Fail()
	}

	if canonicalizeName("foo//bar///baz/") != "foo/bar/baz" {
		t.Fail()
	}

	if canonicalizeName("~foo//bar///baz/") != "~foo/bar/baz" {
		t.Fail()
	}
}

func TestSpecialNamespace(t *testing.T) {
	if !isGlobalName("/foo") {
		t.Fail()
	}
	if isGlobalName("~foo") {
		t.Fail()
	}
	if isGlobalName("foo") {
		t.Fail()
	}

	if isPrivateName("/foo") {
		t.Fail()
	}
	if !isPrivateName("~foo") {
		t.Fail()
	}
	if isPrivateName("foo") {
		t.Fail()
	}
}

func TestQualifyNodeName(t *testing.T) {
	cases := []struct {
		name, ns, base string
	}{
		{"send_localization", "/", "send_localization"},
		{"/send_localization", "/", "send_localization"},
		{"/robot/nav/send_localization", "/robot/nav/", "send_localization"},
		{"robot/service_test", "/robot/", "service_test"},
	}
	for _, c := range cases {
		ns, base, err := qualifyNodeName(c.name)
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if ns != c.ns || base != c.base {
			t.Errorf("%s: got (%s, %s)", c.name, ns, base)
		}
	}

	for _, bad := range []string{"", "~node", "0node", "foo bar"} {
		if _, _, err := qualifyNodeName(bad); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
}

func TestResolution1(t *testing.T) {
	resolver := newNameResolver("/node1", NameMap{})
	var result string

	result = resolver.resolve("bar")
	if result != "/bar" {
		t.Error(result)
	}

	result = resolver.resolve("/bar")
	if result != "/bar" {
		t.Error(result)
	}

	result = resolver.resolve("~bar")
	if result != "/node1/bar" {
		t.Error(result)
	}
}

func TestResolution2(t *testing.T) {
	resolver := newNameResolver("/go/node2", NameMap{})
	var result string

	result = resolver.resolve("bar")
	if result != "/go/bar" {
		t.Error(result)
	}

	result = resolver.resolve("/bar")
	if result != "/bar" {
		t.Error(result)
	}

	result = resolver.resolve("~bar")
	if result != "/go/node2/bar" {
		t.Error(result)
	}
}

func TestResolution3(t *testing.T) {
	resolver := newNameResolver("/go/node3", NameMap{})
	var result string

	result = resolver.resolve("foo/bar")
	if result != "/go/foo/bar" {
		t.Error(result)
	}

	result = resolver.resolve("/foo/bar")
	if result != "/foo/bar" {
		t.Error(result)
	}

	result = resolver.resolve("~foo/bar")
	if result != "/go/node3/foo/bar" {
		t.Error(result)
	}
}

func TestNameMap1(t *testing.T) {
	remapping := NameMap{
		"foo": "bar",
	}

	resolver := newNameResolver("/mynode", remapping)
	var result string

	result = resolver.remap("foo")
	if result != "/bar" {
		t.Error(result)
	}

	result = resolver.remap("/foo")
	if result != "/bar" {
		t.Error(result)
	}
}

func TestNameMap2(t *testing.T) {
	remapping := NameMap{
		"foo": "bar",
	}

	resolver := newNameResolver("/baz/mynode", remapping)
	var result string

	result = resolver.remap("foo")
	if result != "/baz/bar" {
		t.Error(result)
		t.Error(resolver.resolvedMapping)
	}

	result = resolver.remap("/baz/foo")
	if result != "/baz/bar" {
		t.Error(result)
	}
}

func TestNameMap3(t *testing.T) {
	remapping := NameMap{
		"/foo": "/a/b/c/bar",
	}

	resolver := newNameResolver("/baz/mynode", remapping)
	result := resolver.remap("/foo")
	if result != "/a/b/c/bar" {
		t.Error(result)
	}
}

func TestRemapService(t *testing.T) {
	remapping := NameMap{
		"reinitialize_global_localization": "/amcl/reinitialize_global_localization",
	}
	resolver := newNameResolver("/robot/send_localization", remapping)

	if result := resolver.remap("reinitialize_global_localization"); result != "/amcl/reinitialize_global_localization" {
		t.Error(result)
	}
	if result := resolver.remap("global_costmap/clear_entirely_global_costmap"); result != "/robot/global_costmap/clear_entirely_global_costmap" {
		t.Error(result)
	}
}

func TestGetNamespace(t *testing.T) {
	var ns string
	ns = getNamespace("")
	if ns != "/" {
		t.Error(ns)
	}

	ns = getNamespace("/")
	if ns != "/" {
		t.Error(ns)
	}

	ns = getNamespace("/foo")
	if ns != "/" {
		t.Error(ns)
	}

	ns = getNamespace("/foo/")
	if ns != "/" {
		t.Error(ns)
	}

	ns = getNamespace("/foo/bar")
	if ns != "/foo/" {
		t.Error(ns)
	}

	ns = getNamespace("/foo/bar/baz")
	if ns != "/foo/bar/" {
		t.Error(ns)
	}
}

func TestProcessArguments(t *testing.T) {
	args := []string{
		"foo:=bar",
		"_param:=value",
		"__master:=http://localhost:11311",
		"foo",
		"42",
	}

	mapping, params, specials, rest := processArguments(args)
	if mapping["foo"] != "bar" {
		t.Fail()
	}
	if params["param"] != "value" {
		t.Fail()
	}
	if specials["__master"] != "http://localhost:11311" {
		t.Fail()
	}
	if len(rest) != 2 {
		t.Fail()
	}
	if rest[0] != "foo" || rest[1] != "42" {
		t.Fail()
	}
}
