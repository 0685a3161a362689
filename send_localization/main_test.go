package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestWireTypes(t *testing.T) {
	types, err := wireTypes()
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != len(wireMessages)+len(wireServices) {
		t.Errorf("expected %d types, got %d", len(wireMessages)+len(wireServices), len(types))
	}
}

func TestTypesCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"types"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"nav2_msgs/GlobalLocalization",
		"a6cf641232e3a33f934241cc2895ab85",
		"geometry_msgs/PoseWithCovarianceStamped",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output misses %q:\n%s", want, out.String())
		}
	}
}
