// Package imgstack holds the float32 image stacks the kernels operate
// on: a time series of equally sized fluorescence frames in row-major
// order.
package imgstack

import (
	"errors"
	"fmt"

	"github.com/x448/float16"
)

var ErrShape = errors.New("imgstack: invalid shape")

// Stack is a frames x height x width block of float32 pixels. NDim
// distinguishes a true 2D image from a single-frame stack: kernels that
// collapse a leading singleton time axis return NDim == 2.
type Stack struct {
	Frames int
	Height int
	Width  int
	NDim   int
	Data   []float32
}

func New(frames, height, width int) *Stack {
	return &Stack{
		Frames: frames,
		Height: height,
		Width:  width,
		NDim:   3,
		Data:   make([]float32, frames*height*width),
	}
}

// New2D returns a single frame with a 2D shape.
func New2D(height, width int) *Stack {
	s := New(1, height, width)
	s.NDim = 2
	return s
}

// FromSlice wraps data as a stack without copying. len(data) must be
// frames*height*width.
func FromSlice(data []float32, frames, height, width int) (*Stack, error) {
	if len(data) != frames*height*width {
		return nil, fmt.Errorf("%w: %d values for %dx%dx%d", ErrShape, len(data), frames, height, width)
	}
	return &Stack{Frames: frames, Height: height, Width: width, NDim: 3, Data: data}, nil
}

// FromFloat16 converts a half-precision pixel buffer, the native output
// format of several sCMOS camera pipelines.
func FromFloat16(bits []uint16, frames, height, width int) (*Stack, error) {
	if len(bits) != frames*height*width {
		return nil, fmt.Errorf("%w: %d values for %dx%dx%d", ErrShape, len(bits), frames, height, width)
	}
	s := New(frames, height, width)
	for i, b := range bits {
		s.Data[i] = float16.Frombits(b).Float32()
	}
	return s, nil
}

func (s *Stack) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil stack", ErrShape)
	}
	if s.Frames <= 0 || s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("%w: %dx%dx%d", ErrShape, s.Frames, s.Height, s.Width)
	}
	if s.NDim != 2 && s.NDim != 3 {
		return fmt.Errorf("%w: ndim %d", ErrShape, s.NDim)
	}
	if s.NDim == 2 && s.Frames != 1 {
		return fmt.Errorf("%w: 2d stack with %d frames", ErrShape, s.Frames)
	}
	if len(s.Data) != s.Frames*s.Height*s.Width {
		return fmt.Errorf("%w: %d values for %dx%dx%d", ErrShape, len(s.Data), s.Frames, s.Height, s.Width)
	}
	return nil
}

// Shape reports the logical dimensions: [height, width] for 2D results,
// [frames, height, width] otherwise.
func (s *Stack) Shape() []int {
	if s.NDim == 2 {
		return []int{s.Height, s.Width}
	}
	return []int{s.Frames, s.Height, s.Width}
}

// Frame returns the t-th frame as a view into the underlying data.
func (s *Stack) Frame(t int) []float32 {
	n := s.Height * s.Width
	return s.Data[t*n : (t+1)*n : (t+1)*n]
}

func (s *Stack) At(t, y, x int) float32 {
	return s.Data[(t*s.Height+y)*s.Width+x]
}

func (s *Stack) Set(t, y, x int, v float32) {
	s.Data[(t*s.Height+y)*s.Width+x] = v
}

func (s *Stack) Clone() *Stack {
	out := &Stack{Frames: s.Frames, Height: s.Height, Width: s.Width, NDim: s.NDim}
	out.Data = append([]float32(nil), s.Data...)
	return out
}

// Squeeze collapses a leading singleton time axis in place and returns
// the stack for chaining. A multi-frame stack is returned unchanged.
func (s *Stack) Squeeze() *Stack {
	if s.Frames == 1 {
		s.NDim = 2
	}
	return s
}
