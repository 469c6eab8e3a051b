package engine

import (
	"math"

	"startasm/internal/runtime"
)

const pow32 = int64(1) << 32
const pow31 = int64(1) << 31

// wrap32 folds a raw 64-bit arithmetic result back into the 32-bit two's
// complement range [-2^31, 2^31-1], per spec.md §4.2.
func wrap32(raw int64) int64 {
	wrapped := raw % pow32
	if wrapped < 0 {
		wrapped += pow32
	}
	if wrapped >= pow31 {
		wrapped -= pow32
	}
	return wrapped
}

// wrap8 folds a raw result into the unsigned byte range [0, 255], used for
// CHARACTER results. The overflow flag is left untouched: wraparound is
// definitional for CHARACTER, not an overflow condition.
func wrap8(raw int64) int64 {
	wrapped := raw % 256
	if wrapped < 0 {
		wrapped += 256
	}
	return wrapped
}

// applyArithmeticResult runs the shared flag-update rule from spec.md §4.2:
// wrap the raw result according to tag, set Z/S from the wrapped value (Z
// wins: Z true forces S false), and — for every tag but CHARACTER — set O
// from whether the unwrapped result left the 32-bit signed range. It
// returns the wrapped value so the caller can write it back.
func (e *Engine) applyArithmeticResult(raw int64, tag runtime.Tag) int64 {
	var wrapped int64
	if tag == runtime.Character {
		wrapped = wrap8(raw)
	} else {
		wrapped = wrap32(raw)
		overflow := raw < math.MinInt32 || raw > math.MaxInt32
		e.rt.SetFlag(runtime.Overflow, overflow)
	}

	zero := wrapped == 0
	sign := wrapped < 0
	if zero {
		sign = false
	}
	e.rt.SetFlag(runtime.Zero, zero)
	e.rt.SetFlag(runtime.Sign, sign)
	return wrapped
}
