package localization

import (
	"strings"

	"github.com/pkg/errors"
)

// Distro selects which global localization service the node calls.
type Distro int

const (
	// Jazzy and newer only offer the empty reinitialize service.
	Jazzy Distro = iota
	// Humble offers fast global localization seeded by a gaussian mixture.
	Humble
)

func (d Distro) String() string {
	switch d {
	case Humble:
		return "humble"
	case Jazzy:
		return "jazzy"
	}
	return "unknown"
}

// ParseDistro accepts a distro name in any case.
func ParseDistro(s string) (Distro, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "humble":
		return Humble, nil
	case "jazzy":
		return Jazzy, nil
	}
	return Jazzy, errors.Errorf("unknown ROS distro %q", s)
}
