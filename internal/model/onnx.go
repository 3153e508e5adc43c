package model

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

type SessionConfig struct {
	// IntraOpThreads of zero keeps the runtime default.
	IntraOpThreads int
}

// tensorInfo is the part of an ONNX input/output declaration the loader checks.
type tensorInfo struct {
	name    string
	dims    []int64
	isFloat bool
}

// onnxRunner owns one dynamic session. Every Run allocates its own tensors, so
// concurrent calls share nothing but the session, which ONNX Runtime allows.
type onnxRunner struct {
	session     *ort.DynamicAdvancedSession
	inputShape  ort.Shape
	outputShape ort.Shape
}

// checkArtifact fails unless path is a regular file.
func checkArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("model artifact %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("model artifact %s: not a regular file", path)
	}
	return nil
}

func newOnnxRunner(spec Spec, cfg SessionConfig) (*onnxRunner, Layout, error) {
	if err := checkArtifact(spec.Path); err != nil {
		return nil, 0, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(spec.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read model %s: %w", spec.Path, err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, 0, fmt.Errorf("%w: %s has %d inputs and %d outputs, want 1 and 1",
			ErrShapeMismatch, spec.Path, len(inputs), len(outputs))
	}
	input, output := toTensorInfo(inputs[0]), toTensorInfo(outputs[0])

	layout, inputShape, err := resolveInput(spec, input)
	if err != nil {
		return nil, 0, err
	}
	outputShape, err := resolveOutput(spec, output)
	if err != nil {
		return nil, 0, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()
	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, 0, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(spec.Path,
		[]string{input.name}, []string{output.name}, options)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &onnxRunner{
		session:     session,
		inputShape:  ort.NewShape(inputShape...),
		outputShape: ort.NewShape(outputShape...),
	}, layout, nil
}

func toTensorInfo(info ort.InputOutputInfo) tensorInfo {
	return tensorInfo{
		name:    info.Name,
		dims:    []int64(info.Dimensions),
		isFloat: info.DataType == ort.TensorElementDataTypeFloat,
	}
}

func (r *onnxRunner) Run(input []float32) ([]float32, error) {
	inputTensor, err := ort.NewTensor(r.inputShape, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](r.outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := r.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := outputTensor.GetData()
	result := make([]float32, len(data))
	copy(result, data)
	return result, nil
}

func (r *onnxRunner) Close() error {
	return r.session.Destroy()
}

func dimMatches(dim, want int64) bool {
	return dim <= 0 || dim == want
}

// resolveInput checks the declared image input against spec and returns the
// layout plus a concrete batch-of-one shape. An ambiguous or fully dynamic
// declaration is treated as channels-last.
func resolveInput(spec Spec, info tensorInfo) (Layout, []int64, error) {
	size := int64(spec.InputSize)
	if !info.isFloat {
		return 0, nil, fmt.Errorf("%w: %s input %q is not float32", ErrShapeMismatch, spec.Name, info.name)
	}
	if len(info.dims) != 4 || !dimMatches(info.dims[0], 1) {
		return 0, nil, fmt.Errorf("%w: %s input %q has shape %v", ErrShapeMismatch, spec.Name, info.name, info.dims)
	}

	d := info.dims
	if d[1] == 3 && d[3] != 3 {
		if !dimMatches(d[2], size) || !dimMatches(d[3], size) {
			return 0, nil, fmt.Errorf("%w: %s expects %dx%d input, model declares %v",
				ErrShapeMismatch, spec.Name, size, size, d)
		}
		return LayoutNCHW, []int64{1, 3, size, size}, nil
	}

	if !dimMatches(d[1], size) || !dimMatches(d[2], size) || !dimMatches(d[3], 3) {
		return 0, nil, fmt.Errorf("%w: %s expects %dx%dx3 input, model declares %v",
			ErrShapeMismatch, spec.Name, size, size, d)
	}
	return LayoutNHWC, []int64{1, size, size, 3}, nil
}

// resolveOutput returns a concrete output shape whose element count is either
// the label count or one. Only the batch dimension may be dynamic.
func resolveOutput(spec Spec, info tensorInfo) ([]int64, error) {
	if !info.isFloat {
		return nil, fmt.Errorf("%w: %s output %q is not float32", ErrShapeMismatch, spec.Name, info.name)
	}
	if len(info.dims) == 0 {
		return nil, fmt.Errorf("%w: %s output %q is a scalar", ErrShapeMismatch, spec.Name, info.name)
	}

	shape := make([]int64, len(info.dims))
	count := int64(1)
	for i, dim := range info.dims {
		if dim <= 0 {
			if i != 0 {
				return nil, fmt.Errorf("%w: %s output %q has dynamic class dimension %v",
					ErrShapeMismatch, spec.Name, info.name, info.dims)
			}
			dim = 1
		}
		shape[i] = dim
		count *= dim
	}

	if count != int64(len(spec.Labels)) && count != 1 {
		return nil, fmt.Errorf("%w: %s output has %d values for %d labels",
			ErrLabelCount, spec.Name, count, len(spec.Labels))
	}
	return shape, nil
}
