//go:build tflite

package classify

import (
	"errors"
	"fmt"
	"image"
	"runtime"

	tflite "github.com/mattn/go-tflite"
)

// model owns a TFLite interpreter and its input geometry.
type model struct {
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	width       int
	height      int
}

func openModel(opts Options) (*model, error) {
	m := tflite.NewModelFromFile(opts.ModelPath)
	if m == nil {
		return nil, fmt.Errorf("classify: load model %s", opts.ModelPath)
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	options := tflite.NewInterpreterOptions()
	if options == nil {
		m.Delete()
		return nil, errors.New("classify: create interpreter options")
	}
	options.SetNumThread(threads)

	interpreter := tflite.NewInterpreter(m, options)
	if interpreter == nil {
		options.Delete()
		m.Delete()
		return nil, errors.New("classify: create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		m.Delete()
		return nil, errors.New("classify: allocate tensors")
	}

	input := interpreter.GetInputTensor(0)
	if input.NumDims() != 4 || input.Dim(3) != 3 {
		interpreter.Delete()
		options.Delete()
		m.Delete()
		return nil, fmt.Errorf("classify: model input must be [1,h,w,3], got %d dims", input.NumDims())
	}

	return &model{
		model:       m,
		options:     options,
		interpreter: interpreter,
		height:      input.Dim(1),
		width:       input.Dim(2),
	}, nil
}

// invoke copies img into the input tensor and runs the interpreter.
func (m *model) invoke(img image.Image) error {
	rgb := rgbInput(img, m.width, m.height)
	input := m.interpreter.GetInputTensor(0)

	switch input.Type() {
	case tflite.UInt8:
		dst := input.UInt8s()
		if len(dst) != len(rgb) {
			return &Error{Op: "shape", Err: fmt.Errorf("input tensor holds %d values, frame has %d", len(dst), len(rgb))}
		}
		copy(dst, rgb)
	case tflite.Float32:
		if err := normalize(rgb, input.Float32s()); err != nil {
			return &Error{Op: "shape", Err: err}
		}
	default:
		return &Error{Op: "input", Err: fmt.Errorf("unsupported input tensor type %v", input.Type())}
	}

	if status := m.interpreter.Invoke(); status != tflite.OK {
		return &Error{Op: "infer", Err: errors.New("interpreter invoke failed")}
	}
	return nil
}

func (m *model) close() {
	m.interpreter.Delete()
	m.options.Delete()
	m.model.Delete()
}

// outputFloats reads output tensor i as float32 values, dequantizing uint8.
func (m *model) outputFloats(i int) ([]float32, error) {
	if i >= m.interpreter.GetOutputTensorCount() {
		return nil, &Error{Op: "output", Err: fmt.Errorf("model has no output tensor %d", i)}
	}
	t := m.interpreter.GetOutputTensor(i)
	switch t.Type() {
	case tflite.Float32:
		return t.Float32s(), nil
	case tflite.UInt8:
		q := t.QuantizationParams()
		raw := t.UInt8s()
		out := make([]float32, len(raw))
		for j, v := range raw {
			out[j] = float32(q.Scale * float64(int(v)-q.ZeroPoint))
		}
		return out, nil
	default:
		return nil, &Error{Op: "output", Err: fmt.Errorf("unsupported output tensor type %v", t.Type())}
	}
}

// SSD runs an SSD-style detection model with outputs
// [boxes, classes, scores, count].
type SSD struct {
	m      *model
	offset int
}

// NewSSD loads an SSD detection model.
func NewSSD(opts Options) (*SSD, error) {
	m, err := openModel(opts)
	if err != nil {
		return nil, err
	}
	if n := m.interpreter.GetOutputTensorCount(); n < 4 {
		m.close()
		return nil, fmt.Errorf("classify: ssd model needs 4 outputs, got %d", n)
	}
	return &SSD{m: m, offset: opts.ClassOffset}, nil
}

// Infer returns every detection the model reports.
func (s *SSD) Infer(img image.Image) ([]Detection, error) {
	if err := s.m.invoke(img); err != nil {
		return nil, err
	}
	classes, err := s.m.outputFloats(1)
	if err != nil {
		return nil, err
	}
	scores, err := s.m.outputFloats(2)
	if err != nil {
		return nil, err
	}
	count, err := s.m.outputFloats(3)
	if err != nil {
		return nil, err
	}

	return ssdDetections(classes, scores, count, s.offset), nil
}

// Close releases the interpreter.
func (s *SSD) Close() error {
	s.m.close()
	return nil
}

// ImageClassifier runs a whole-image classification model and reports its
// top-1 class.
type ImageClassifier struct {
	m      *model
	offset int
}

// NewImageClassifier loads an image classification model.
func NewImageClassifier(opts Options) (*ImageClassifier, error) {
	m, err := openModel(opts)
	if err != nil {
		return nil, err
	}
	return &ImageClassifier{m: m, offset: opts.ClassOffset}, nil
}

// Infer returns the single best class.
func (c *ImageClassifier) Infer(img image.Image) ([]Detection, error) {
	if err := c.m.invoke(img); err != nil {
		return nil, err
	}
	scores, err := c.m.outputFloats(0)
	if err != nil {
		return nil, err
	}
	best, score := argmax(scores)
	if best < 0 {
		return nil, nil
	}
	return []Detection{{Class: best + c.offset, Score: score}}, nil
}

// Close releases the interpreter.
func (c *ImageClassifier) Close() error {
	c.m.close()
	return nil
}
