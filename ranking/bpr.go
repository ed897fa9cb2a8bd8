package ranking

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// UpdatePair performs one BPR step for user factors u against a relevant
// item qi and an irrelevant item qj. It updates u in place and returns the
// gradients for qi and qj together with the pair loss -log σ(u·(qi-qj)).
// The gradients are computed from u before it is updated.
func UpdatePair(u, qi, qj []float64, gamma, lambda float64) (relevantGrad, irrelevantGrad []float64, loss float64) {
	diff := make([]float64, len(u))
	floats.SubTo(diff, qi, qj)
	x := floats.Dot(u, diff)
	z := sigmoid(-x)

	relevantGrad = make([]float64, len(u))
	floats.ScaleTo(relevantGrad, z, u)
	irrelevantGrad = make([]float64, len(u))
	floats.ScaleTo(irrelevantGrad, -z, u)

	for i := range u {
		u[i] += gamma * (z*diff[i] - lambda*u[i])
	}
	return relevantGrad, irrelevantGrad, -math.Log(sigmoid(x))
}

// ApplyGradient updates item factors q in place with q += gamma*(grad - lambda*q).
func ApplyGradient(q, grad []float64, gamma, lambda float64) {
	for i := range q {
		q[i] += gamma * (grad[i] - lambda*q[i])
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
