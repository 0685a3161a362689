//go:build humble
// +build humble

package localization

// DefaultDistro is chosen with the humble build tag.
const DefaultDistro = Humble
