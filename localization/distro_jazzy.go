//go:build !humble
// +build !humble

package localization

// DefaultDistro is Jazzy unless built with the humble tag.
const DefaultDistro = Jazzy
