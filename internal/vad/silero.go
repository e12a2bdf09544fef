package vad

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

const sileroStateSize = 128

// SileroEngine runs Silero VAD v5 inference via ONNX Runtime. It expects
// 16 kHz mono input and keeps a recurrent state tensor across calls.
type SileroEngine struct {
	session *ort.AdvancedSession

	inputTensor *ort.Tensor[float32] // [1, 512]
	stateTensor *ort.Tensor[float32] // [2, 1, 128]
	srTensor    *ort.Tensor[int64]   // scalar

	outputTensor *ort.Tensor[float32] // [1, 1]
	stateNTensor *ort.Tensor[float32] // [2, 1, 128]
}

// NewSileroEngine loads the Silero VAD ONNX model from modelPath and
// allocates the tensors reused across Infer calls.
func NewSileroEngine(onnxLib, modelPath string) (*SileroEngine, error) {
	ort.SetSharedLibraryPath(onnxLib)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("vad: onnx init: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, WindowSamples))
	if err != nil {
		return nil, fmt.Errorf("vad: input tensor: %w", err)
	}
	stateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("vad: state tensor: %w", err)
	}
	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{16000})
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		return nil, fmt.Errorf("vad: sr tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		return nil, fmt.Errorf("vad: output tensor: %w", err)
	}
	stateNTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("vad: stateN tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{inputTensor, stateTensor, srTensor},
		[]ort.Value{outputTensor, stateNTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		stateNTensor.Destroy()
		return nil, fmt.Errorf("vad: create session: %w", err)
	}

	return &SileroEngine{
		session:      session,
		inputTensor:  inputTensor,
		stateTensor:  stateTensor,
		srTensor:     srTensor,
		outputTensor: outputTensor,
		stateNTensor: stateNTensor,
	}, nil
}

// Infer runs a single inference on exactly WindowSamples samples and
// carries the recurrent state forward for the next call.
func (e *SileroEngine) Infer(window []float32) (float32, error) {
	if len(window) != WindowSamples {
		return 0, fmt.Errorf("vad: window has %d samples, want %d", len(window), WindowSamples)
	}
	copy(e.inputTensor.GetData(), window)
	if err := e.session.Run(); err != nil {
		return 0, fmt.Errorf("vad: inference: %w", err)
	}
	prob := e.outputTensor.GetData()[0]
	copy(e.stateTensor.GetData(), e.stateNTensor.GetData())
	return prob, nil
}

// Reset zeroes the recurrent hidden state.
func (e *SileroEngine) Reset() {
	state := e.stateTensor.GetData()
	for i := range state {
		state[i] = 0
	}
}

// Close releases the ONNX session and tensors.
func (e *SileroEngine) Close() {
	e.session.Destroy()
	e.inputTensor.Destroy()
	e.stateTensor.Destroy()
	e.srTensor.Destroy()
	e.outputTensor.Destroy()
	e.stateNTensor.Destroy()
}
