package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets the first numerator of every denominator events through.
// A zero ratio lets everything through.
type ratioSampler struct {
	// ratio packs numerator<<32 | denominator.
	ratio   atomic.Uint64
	counter atomic.Uint64
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set configures the ratio and restarts the cycle.
func (s *ratioSampler) Set(numerator, denominator int) {
	var packed uint64
	if numerator > 0 && denominator > 0 {
		numerator = min(numerator, denominator)
		packed = uint64(uint32(numerator))<<32 | uint64(uint32(denominator))
	}
	s.ratio.Store(packed)
	s.counter.Store(0)
}

// Allow reports whether the current event passes.
func (s *ratioSampler) Allow() bool {
	packed := s.ratio.Load()
	num, den := packed>>32, packed&0xffffffff
	if num == 0 || den == 0 {
		return true
	}
	return (s.counter.Add(1)-1)%den < num
}

// parseRatioSpec accepts "n/d" or "d" (meaning 1/d).
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if n, d, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(n))
		den, err2 := strconv.Atoi(strings.TrimSpace(d))
		if err1 == nil && err2 == nil {
			return num, den
		}
		return 0, 0
	}
	if v, err := strconv.Atoi(spec); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}
