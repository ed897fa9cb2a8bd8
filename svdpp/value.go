package svdpp

import (
	"encoding/binary"
	"math"

	"gonum.org/v1/gonum/floats"
	"golang.org/x/xerrors"
)

// ErrCorruptValue is returned when decoding a Value from a malformed
// buffer.
var ErrCorruptValue = xerrors.New("corrupt svdpp value")

// Value is the state of a vertex of the rating graph. Weights holds the
// implicit feedback vector of users and is nil for items.
type Value struct {
	Bias    float64
	Factors []float64
	Weights []float64
}

// MarshalBinary implements encoding.BinaryMarshaler. Floats are stored as
// their IEEE 754 bit patterns so that decoding is exact.
func (v *Value) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8+4+8*len(v.Factors)+4+8*len(v.Weights))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v.Bias))
	buf = appendVector(buf, v.Factors)
	buf = appendVector(buf, v.Weights)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (v *Value) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return xerrors.Errorf("bias: %w", ErrCorruptValue)
	}
	bias := math.Float64frombits(binary.BigEndian.Uint64(data))

	factors, rest, err := readVector(data[8:])
	if err != nil {
		return xerrors.Errorf("factors: %w", err)
	}
	weights, rest, err := readVector(rest)
	if err != nil {
		return xerrors.Errorf("weights: %w", err)
	}
	if len(rest) != 0 {
		return xerrors.Errorf("%d trailing bytes: %w", len(rest), ErrCorruptValue)
	}

	v.Bias, v.Factors, v.Weights = bias, factors, weights
	return nil
}

// nilVector marks a nil slice so that it survives a round-trip.
const nilVector = math.MaxUint32

func appendVector(buf []byte, vec []float64) []byte {
	if vec == nil {
		return binary.BigEndian.AppendUint32(buf, nilVector)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(vec)))
	for _, f := range vec {
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(f))
	}
	return buf
}

func readVector(data []byte) ([]float64, []byte, error) {
	if len(data) < 4 {
		return nil, nil, ErrCorruptValue
	}
	n := binary.BigEndian.Uint32(data)
	data = data[4:]
	if n == nilVector {
		return nil, data, nil
	}
	if uint64(len(data)) < 8*uint64(n) {
		return nil, nil, ErrCorruptValue
	}

	vec := make([]float64, n)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.BigEndian.Uint64(data[8*i:]))
	}
	return vec, data[8*n:], nil
}

// PredictRating returns mean + userBias + itemBias + item·(user + w/√n)
// clamped to [minRating, maxRating], where n is the number of ratings of the
// user. Without implicit feedback (nil weights or no ratings) the dot
// product reduces to item·user.
func PredictRating(mean, userBias, itemBias float64, user, item []float64, numRatings int, weights []float64, minRating, maxRating float64) float64 {
	pred, _ := predict(mean, userBias, itemBias, user, item, numRatings, weights, minRating, maxRating)
	return pred
}

func predict(mean, userBias, itemBias float64, user, item []float64, numRatings int, weights []float64, minRating, maxRating float64) (float64, bool) {
	pred := mean + userBias + itemBias + floats.Dot(item, effectiveUserVector(user, weights, numRatings))
	switch {
	case pred < minRating:
		return minRating, true
	case pred > maxRating:
		return maxRating, true
	}
	return pred, false
}

// effectiveUserVector returns a new vector holding user + weights/√n.
func effectiveUserVector(user, weights []float64, numRatings int) []float64 {
	eff := make([]float64, len(user))
	copy(eff, user)
	if weights != nil && numRatings > 0 {
		floats.AddScaled(eff, 1/math.Sqrt(float64(numRatings)), weights)
	}
	return eff
}

// UpdateValue applies value ← value + gamma*(err*grad − lambda*value) in
// place.
func UpdateValue(value, grad []float64, err, gamma, lambda float64) {
	for i := range value {
		value[i] += gamma * (err*grad[i] - lambda*value[i])
	}
}

// UpdateBaseline returns baseline + gamma*(err − lambda*baseline).
func UpdateBaseline(baseline, err, gamma, lambda float64) float64 {
	return baseline + gamma*(err-lambda*baseline)
}
