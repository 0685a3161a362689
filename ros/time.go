package ros

import (
	gotime "time"
)

const nsecPerSec = 1000000000

//Time is a ROS timestamp of {sec,nsec} since the epoch
type Time struct {
	Sec  uint32
	NSec uint32
}

//NewTime creates a Time, carrying whole seconds out of nsec
func NewTime(sec uint32, nsec uint32) Time {
	total := uint64(sec)*nsecPerSec + uint64(nsec)
	return Time{uint32(total / nsecPerSec), uint32(total % nsecPerSec)}
}

//Now creates a Time object of value Now
func Now() Time {
	return FromGoTime(gotime.Now())
}

//FromGoTime converts a time.Time to a ROS Time
func FromGoTime(t gotime.Time) Time {
	nsec := t.UnixNano()
	if nsec < 0 {
		return Time{}
	}
	return Time{uint32(nsec / nsecPerSec), uint32(nsec % nsecPerSec)}
}

//GoTime converts the ROS Time to a time.Time
func (t Time) GoTime() gotime.Time {
	return gotime.Unix(int64(t.Sec), int64(t.NSec))
}

//IsZero reports whether t is the zero stamp
func (t Time) IsZero() bool {
	return t.Sec == 0 && t.NSec == 0
}

//ToSec returns t in seconds
func (t Time) ToSec() float64 {
	return float64(t.Sec) + float64(t.NSec)*1e-9
}
