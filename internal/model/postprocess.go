package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyOutput   = errors.New("model produced no output")
	ErrNonFinite     = errors.New("model output is not finite")
	ErrLabelCount    = errors.New("model output does not match label count")
	ErrShapeMismatch = errors.New("model shape is incompatible")
)

// Softmax turns raw scores into a distribution. The maximum is subtracted
// first so large logits do not overflow.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := float64(logits[0])
	for _, v := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(v))
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(float64(v) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Argmax returns the index of the first largest value.
func Argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// NewPrediction normalizes a raw model output against labels. A single-value
// output is a pre-normalized one-class result: the first label gets 1.0.
func NewPrediction(labels []string, output []float32) (*PredictionResponse, error) {
	if len(output) == 0 {
		return nil, ErrEmptyOutput
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no labels configured", ErrLabelCount)
	}
	for _, v := range output {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, ErrNonFinite
		}
	}

	var probs []float64
	switch len(output) {
	case 1:
		probs = make([]float64, len(labels))
		probs[0] = 1.0
	case len(labels):
		probs = Softmax(output)
	default:
		return nil, fmt.Errorf("%w: got %d values for %d labels", ErrLabelCount, len(output), len(labels))
	}

	topIdx := Argmax(probs)
	distribution := make(Probabilities, len(labels))
	for i, label := range labels {
		distribution[i] = Probability{Label: label, Value: probs[i]}
	}

	return &PredictionResponse{
		Top:    labels[topIdx],
		TopIdx: topIdx,
		Conf:   probs[topIdx],
		Labels: labels,
		Probs:  distribution,
	}, nil
}
