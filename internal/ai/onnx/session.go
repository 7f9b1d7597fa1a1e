// Package onnx runs YOLO-format detection models in-process through ONNX
// Runtime.
package onnx

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	inputName  = "images"
	outputName = "output0"
)

var (
	envMu   sync.Mutex
	envRefs int
)

// acquireEnvironment initializes the process-wide ONNX Runtime environment
// on first use
func acquireEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize onnx runtime: %w", err)
		}
	}
	envRefs++
	return nil
}

// releaseEnvironment tears the environment down with its last user
func releaseEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		return nil
	}
	envRefs--
	if envRefs == 0 {
		return ort.DestroyEnvironment()
	}
	return nil
}

// numAnchors is the number of predictions a YOLOv8 head emits for a square
// input: one per cell of the stride 8, 16 and 32 grids
func numAnchors(inputSize int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		g := inputSize / stride
		n += g * g
	}
	return n
}

type session struct {
	run    *ort.AdvancedSession
	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]
}

type sessionConfig struct {
	modelPath  string
	inputSize  int
	numClasses int
	threads    int
}

func newSession(sc sessionConfig) (*session, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	if sc.threads > 0 {
		if err := options.SetIntraOpNumThreads(sc.threads); err != nil {
			return nil, fmt.Errorf("error setting intra-op threads: %w", err)
		}
	}

	size := int64(sc.inputSize)
	inputShape := ort.NewShape(1, 3, size, size)
	outputShape := ort.NewShape(1, int64(4+sc.numClasses), int64(numAnchors(sc.inputSize)))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	run, err := ort.NewAdvancedSession(
		sc.modelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &session{run: run, input: inputTensor, output: outputTensor}, nil
}

func (s *session) destroy() {
	if s.run != nil {
		s.run.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}
