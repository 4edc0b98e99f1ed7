package wakeword

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/harkaudio/hark/internal/audio"
)

const (
	onnxFrameLength = 1280 // 80ms at 16kHz, the window keyword models score
	onnxSampleRate  = 16000
)

var ortInit sync.Once

// ONNX scores PCM windows against one keyword model per configured path.
// Each model must accept a [1, 1280] float32 tensor named "input" and emit a
// single score named "output".
type ONNX struct {
	models    []*onnxModel
	threshold float32
}

type onnxModel struct {
	path    string
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNX loads every keyword model. The shared sensitivity is the score
// threshold a model must reach to fire.
func NewONNX(modelPaths []string, sensitivity float64) (*ONNX, error) {
	if len(modelPaths) == 0 {
		return nil, fmt.Errorf("onnx wake backend requires at least one model path")
	}

	var initErr error
	ortInit.Do(func() {
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", initErr)
	}

	d := &ONNX{threshold: float32(sensitivity)}
	for _, path := range modelPaths {
		model, err := loadONNXModel(path)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.models = append(d.models, model)
	}
	return d, nil
}

func loadONNXModel(path string) (*onnxModel, error) {
	input, err := ort.NewTensor(ort.NewShape(1, onnxFrameLength), make([]float32, onnxFrameLength))
	if err != nil {
		return nil, fmt.Errorf("create input tensor for %s: %w", path, err)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor for %s: %w", path, err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("load wake model %s: %w", path, err)
	}

	return &onnxModel{path: path, session: session, input: input, output: output}, nil
}

// Process scores one window against every model and returns the index of the
// highest score at or above the threshold, or -1.
func (d *ONNX) Process(frame []int16) (int, error) {
	samples := audio.Int16ToFloat32(frame)

	bestIndex := -1
	bestScore := float32(-1)
	for i, model := range d.models {
		copy(model.input.GetData(), samples)
		if err := model.session.Run(); err != nil {
			return -1, fmt.Errorf("run wake model %s: %w", model.path, err)
		}
		score := model.output.GetData()[0]
		if score >= d.threshold && score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}
	return bestIndex, nil
}

// FrameLength returns the scoring window size in samples.
func (d *ONNX) FrameLength() int {
	return onnxFrameLength
}

// SampleRate returns the PCM rate the models expect.
func (d *ONNX) SampleRate() int {
	return onnxSampleRate
}

// Close releases every session and tensor.
func (d *ONNX) Close() error {
	var firstErr error
	for _, model := range d.models {
		if err := model.session.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		model.input.Destroy()
		model.output.Destroy()
	}
	d.models = nil
	return firstErr
}
