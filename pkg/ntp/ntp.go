// Package ntp contains functions to encode and decode timestamps to/from NTP format.
package ntp

import (
	"math"
	"time"
)

// seconds between 1st January 1900 and 1st January 1970
const epochOffset = 2208988800

// Encode encodes a timestamp in NTP format.
// The higher 32 bits are seconds since 1900, the lower 32 bits are the fractional part.
// Specification: RFC3550, section 4
func Encode(t time.Time) uint64 {
	v := uint64(t.UnixNano()) + epochOffset*uint64(time.Second)
	secs := v / uint64(time.Second)
	frac := uint64(math.Round(float64((v%uint64(time.Second))<<32) / float64(time.Second)))
	return secs<<32 | frac
}

// Decode decodes a timestamp from NTP format.
// Specification: RFC3550, section 4
func Decode(v uint64) time.Time {
	secs := int64((v >> 32) - epochOffset)
	nanos := int64(((v & 0xFFFFFFFF) * uint64(time.Second)) >> 32)
	return time.Unix(secs, nanos)
}
