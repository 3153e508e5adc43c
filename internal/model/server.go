package model

import (
	"fmt"
	"image"
	"time"

	"github.com/Brownie44l1/medscan-api/internal/metric"
	"github.com/rs/zerolog/log"
)

// Runner executes one forward pass over a flattened batch-of-one input.
type Runner interface {
	Run(input []float32) ([]float32, error)
	Close() error
}

// Server is a loaded classifier. It is immutable after construction and safe
// for concurrent use.
type Server struct {
	Spec   Spec
	layout Layout
	runner Runner
}

// NewServer loads spec's ONNX artifact. The ONNX environment must already be
// initialized.
func NewServer(spec Spec, cfg SessionConfig) (*Server, error) {
	runner, layout, err := newOnnxRunner(spec, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("Loaded %s model from %s (%s, %dx%d, %d labels)",
		spec.Name, spec.Path, layout, spec.InputSize, spec.InputSize, len(spec.Labels))
	return NewServerWithRunner(spec, layout, runner), nil
}

// NewServerWithRunner wraps an already constructed runner.
func NewServerWithRunner(spec Spec, layout Layout, runner Runner) *Server {
	return &Server{Spec: spec, layout: layout, runner: runner}
}

func (s *Server) Info() ModelInfo {
	return ModelInfo{Model: s.Spec.ModelFile(), Labels: s.Spec.Labels}
}

func (s *Server) Predict(img image.Image) (*PredictionResponse, error) {
	input := Preprocess(img, s.Spec.InputSize, s.layout)

	start := time.Now()
	output, err := s.runner.Run(input)
	metric.Timing(metric.InferenceLatency, time.Since(start), []string{
		metric.TagAsString(metric.TagModel, s.Spec.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Spec.Name, err)
	}

	result, err := NewPrediction(s.Spec.Labels, output)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Spec.Name, err)
	}

	metric.Incr(metric.PredictionCount, []string{
		metric.TagAsString(metric.TagModel, s.Spec.Name),
		metric.TagAsString(metric.TagLabel, result.Top),
	})
	return result, nil
}

func (s *Server) Close() {
	if s.runner == nil {
		return
	}
	if err := s.runner.Close(); err != nil {
		log.Warn().Err(err).Msgf("Failed to release %s model", s.Spec.Name)
	}
}
