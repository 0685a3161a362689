package localization

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

const (
	// DefaultSeedSigma is the standard deviation in meters of each
	// mixture component.
	DefaultSeedSigma = 0.5
	lastPoseWeight   = 0.7
)

var (
	ErrEmptySeed        = errors.New("seed has no components")
	ErrInvalidComponent = errors.New("invalid seed component")
)

// Component is one gaussian of the mixture.
type Component struct {
	Center r2.Point
	Sigma  float64
	Weight float64
}

// Seed is a weighted gaussian mixture laid out as the parallel arrays the
// fast global localization request carries.
type Seed struct {
	CenterX []float64
	CenterY []float64
	Sigma   []float64
	Weights []float64
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NewSeed builds a seed from components, normalizing weights to sum to 1.
func NewSeed(components ...Component) (Seed, error) {
	if len(components) == 0 {
		return Seed{}, ErrEmptySeed
	}
	var total float64
	for i, c := range components {
		if !finite(c.Center.X, c.Center.Y, c.Sigma, c.Weight) || c.Sigma <= 0 || c.Weight <= 0 {
			return Seed{}, errors.Wrapf(ErrInvalidComponent, "component %d: %+v", i, c)
		}
		total += c.Weight
	}
	var s Seed
	for _, c := range components {
		s.CenterX = append(s.CenterX, c.Center.X)
		s.CenterY = append(s.CenterY, c.Center.Y)
		s.Sigma = append(s.Sigma, c.Sigma)
		s.Weights = append(s.Weights, c.Weight/total)
	}
	return s, nil
}

// SeedAround centers the mixture on the last known pose and spreads the
// remaining weight over the anchors. Anchors closer than sigma to the pose
// are already covered by its component and are skipped.
func SeedAround(pose Pose, sigma float64, anchors []r2.Point) (Seed, error) {
	var extra []r2.Point
	for _, a := range anchors {
		if a.Sub(pose.Point()).Norm() >= sigma {
			extra = append(extra, a)
		}
	}
	if len(extra) == 0 {
		return NewSeed(Component{Center: pose.Point(), Sigma: sigma, Weight: 1})
	}
	components := []Component{{Center: pose.Point(), Sigma: sigma, Weight: lastPoseWeight}}
	share := (1 - lastPoseWeight) / float64(len(extra))
	for _, a := range extra {
		components = append(components, Component{Center: a, Sigma: sigma, Weight: share})
	}
	return NewSeed(components...)
}

func (s Seed) Len() int {
	return len(s.Weights)
}

// Components returns the mixture as components.
func (s Seed) Components() []Component {
	cs := make([]Component, s.Len())
	for i := range cs {
		cs[i] = Component{
			Center: r2.Point{X: s.CenterX[i], Y: s.CenterY[i]},
			Sigma:  s.Sigma[i],
			Weight: s.Weights[i],
		}
	}
	return cs
}

// Mean is the weighted mean of the component centers.
func (s Seed) Mean() r2.Point {
	var mean r2.Point
	for _, c := range s.Components() {
		mean = mean.Add(c.Center.Mul(c.Weight))
	}
	return mean
}
