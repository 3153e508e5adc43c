package model

import (
	"bytes"
	"encoding/json"
	"path/filepath"
)

const (
	BrainName = "brain"
	LungName  = "lung"

	BrainInputSize = 299
	LungInputSize  = 224
)

var (
	BrainLabels = []string{"glioma", "meningioma", "no_tumor", "pituitary"}
	LungLabels  = []string{"Bacterial Pneumonia", "Corona Virus Disease", "Normal", "Tuberculosis", "Viral Pneumonia"}
)

// Spec describes a classifier: where its artifact lives, the labels its output
// indexes into and the square resolution it expects.
type Spec struct {
	Name      string
	Path      string
	Labels    []string
	InputSize int
}

func BrainSpec(path string) Spec {
	return Spec{Name: BrainName, Path: path, Labels: BrainLabels, InputSize: BrainInputSize}
}

func LungSpec(path string) Spec {
	return Spec{Name: LungName, Path: path, Labels: LungLabels, InputSize: LungInputSize}
}

// ModelFile is the artifact base name reported by the health endpoint.
func (s Spec) ModelFile() string {
	return filepath.Base(s.Path)
}

// Layout is the memory order of the image tensor.
type Layout int

const (
	LayoutNHWC Layout = iota
	LayoutNCHW
)

func (l Layout) String() string {
	if l == LayoutNCHW {
		return "NCHW"
	}
	return "NHWC"
}

// Probability is one label's share of the output distribution.
type Probability struct {
	Label string
	Value float64
}

// Probabilities keeps label order when encoded as a JSON object.
type Probabilities []Probability

func (p Probabilities) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Label)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the probability for label, if present.
func (p Probabilities) Get(label string) (float64, bool) {
	for _, entry := range p {
		if entry.Label == label {
			return entry.Value, true
		}
	}
	return 0, false
}

type PredictionResponse struct {
	Top    string        `json:"top"`
	TopIdx int           `json:"top_idx"`
	Conf   float64       `json:"conf"`
	Labels []string      `json:"labels"`
	Probs  Probabilities `json:"probs"`
}

type ModelInfo struct {
	Model  string   `json:"model"`
	Labels []string `json:"labels"`
}

type HealthResponse struct {
	OK    bool      `json:"ok"`
	Brain ModelInfo `json:"brain"`
	Lung  ModelInfo `json:"lung"`
}
