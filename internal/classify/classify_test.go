package classify

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 640, 480))
}

func newTestDetector(t *testing.T, backend Backend) *Detector {
	t.Helper()
	d, err := NewDetector(backend, NewClassSet(1, 17, 18), 0.7)
	require.NoError(t, err)
	return d
}

func TestDetectorMatch(t *testing.T) {
	tests := []struct {
		name       string
		detections []Detection
		want       bool
	}{
		{"no detections", nil, false},
		{"class and score match", []Detection{{Class: 17, Score: 0.9}}, true},
		{"class only", []Detection{{Class: 17, Score: 0.5}}, false},
		{"score only", []Detection{{Class: 3, Score: 0.99}}, false},
		{"score equal to threshold", []Detection{{Class: 1, Score: 0.7}}, false},
		{"one of many", []Detection{{Class: 3, Score: 0.99}, {Class: 18, Score: 0.2}, {Class: 1, Score: 0.71}}, true},
		{"several qualifying", []Detection{{Class: 17, Score: 0.8}, {Class: 18, Score: 0.9}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, NewFakeBackend(tt.detections))
			got, err := d.Detect(testFrame())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectorWrapsBackendError(t *testing.T) {
	backend := NewFakeBackend()
	backend.Errors = []error{errors.New("session lost")}
	d := newTestDetector(t, backend)

	got, err := d.Detect(testFrame())
	assert.False(t, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassification)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "infer", ce.Op)
	assert.Contains(t, err.Error(), "session lost")
}

func TestDetectorKeepsTypedBackendError(t *testing.T) {
	backend := NewFakeBackend()
	backend.Errors = []error{&Error{Op: "shape", Err: errors.New("bad dims")}}
	d := newTestDetector(t, backend)

	_, err := d.Detect(testFrame())
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "shape", ce.Op)
}

func TestDetectorRejectsEmptyFrame(t *testing.T) {
	backend := NewFakeBackend([]Detection{{Class: 1, Score: 1}})
	d := newTestDetector(t, backend)

	_, err := d.Detect(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrClassification)
	_, err = d.Detect(nil)
	assert.ErrorIs(t, err, ErrClassification)
	assert.Equal(t, 0, backend.Calls, "backend must not run on empty frames")
}

func TestNewDetectorValidation(t *testing.T) {
	_, err := NewDetector(nil, NewClassSet(1), 0.5)
	assert.Error(t, err)

	_, err = NewDetector(NewFakeBackend(), ClassSet{}, 0.5)
	assert.Error(t, err)

	_, err = NewDetector(NewFakeBackend(), NewClassSet(1), 1.5)
	assert.Error(t, err)
}

func TestDetectorClose(t *testing.T) {
	backend := NewFakeBackend()
	d := newTestDetector(t, backend)
	require.NoError(t, d.Close())
	assert.True(t, backend.Closed)
}

func TestFakeBackendSequence(t *testing.T) {
	b := NewFakeBackend(
		[]Detection{{Class: 1, Score: 0.9}},
		nil,
	)
	b.Errors = []error{nil, nil, errors.New("boom")}

	got, err := b.Infer(nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = b.Infer(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = b.Infer(nil)
	assert.Error(t, err)

	// Exhausted errors: stays on the last index.
	_, err = b.Infer(nil)
	assert.Error(t, err)
	assert.Equal(t, 4, b.Calls)
}

func TestFakeClassifier(t *testing.T) {
	f := &FakeClassifier{
		Results: []bool{true, false},
		Errors:  []error{nil, nil, errors.New("boom")},
	}

	got, err := f.Detect(nil)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = f.Detect(nil)
	require.NoError(t, err)
	assert.False(t, got)

	_, err = f.Detect(nil)
	assert.Error(t, err)

	got, err = f.Detect(nil)
	require.NoError(t, err)
	assert.False(t, got, "last result repeats")
	assert.Equal(t, 4, f.CallCount())
}

func TestNewBackendValidation(t *testing.T) {
	_, err := NewBackend(KindSSD, Options{})
	assert.Error(t, err)

	_, err = NewBackend("yolo", Options{ModelPath: "/models/x.tflite"})
	assert.ErrorContains(t, err, "unknown backend kind")
}

func TestRGBInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}

	got := rgbInput(img, 2, 1)
	assert.Equal(t, []byte{10, 20, 30, 10, 20, 30}, got)
}

func TestNormalize(t *testing.T) {
	dst := make([]float32, 3)
	require.NoError(t, normalize([]byte{0, 255, 51}, dst))
	assert.Equal(t, []float32{0, 1, 0.2}, dst)

	assert.Error(t, normalize([]byte{1, 2}, dst))
}

func TestArgmax(t *testing.T) {
	i, s := argmax([]float32{0.1, 0.7, 0.2})
	assert.Equal(t, 1, i)
	assert.Equal(t, float32(0.7), s)

	i, _ = argmax(nil)
	assert.Equal(t, -1, i)
}

func TestSSDDetectionsApplyOffset(t *testing.T) {
	// COCO SSD output: person is 0, dog is 17.
	classes := []float32{0, 17, 2, 5}
	scores := []float32{0.9, 0.8, 0.3, 0.1}

	got := ssdDetections(classes, scores, []float32{3}, 1)
	assert.Equal(t, []Detection{
		{Class: 1, Score: 0.9},
		{Class: 18, Score: 0.8},
		{Class: 3, Score: 0.3},
	}, got)

	d, err := NewDetector(NewFakeBackend(got), NewClassSet(1), 0.7)
	require.NoError(t, err)
	assert.True(t, d.Match(got), "person maps onto label id 1")
}

func TestSSDDetectionsCount(t *testing.T) {
	classes := []float32{1, 2}
	scores := []float32{0.5, 0.6, 0.7}

	assert.Len(t, ssdDetections(classes, scores, nil, 0), 2, "shorter output wins")
	assert.Len(t, ssdDetections(classes, scores, []float32{9}, 0), 2, "count above outputs is ignored")
	assert.Len(t, ssdDetections(classes, scores, []float32{-1}, 0), 2, "negative count is ignored")
	assert.Empty(t, ssdDetections(classes, scores, []float32{0}, 0))
}
