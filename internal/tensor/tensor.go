// Package tensor provides the minimal dense float64 array the sampling and
// module code needs: shape-aware stacking, reshaping and one-hot encoding.
// It is not a numerics library; anything heavier belongs to the concrete
// network collaborators, which are out of scope here.
package tensor

import (
	"fmt"
	"strings"
)

// Tensor is a dense row-major float64 array with an explicit shape.
type Tensor struct {
	shape []int
	data  []float64
}

// New builds a tensor over the given data. The data slice is retained, not
// copied; callers hand over ownership.
func New(shape []int, data []float64) (*Tensor, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("tensor: empty shape")
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("tensor: negative dimension in shape %v", shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("tensor: shape %v requires %d elements, got %d", shape, n, len(data))
	}
	return &Tensor{shape: append([]int(nil), shape...), data: data}, nil
}

// Zeros returns a zero-filled tensor of the given shape.
func Zeros(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	t, err := New(shape, make([]float64, n))
	if err != nil {
		panic(err)
	}
	return t
}

// OneHot returns a length-n vector with a single 1.0 at index hot.
func OneHot(n, hot int) (*Tensor, error) {
	if hot < 0 || hot >= n {
		return nil, fmt.Errorf("tensor: one-hot index %d out of range [0,%d)", hot, n)
	}
	t := Zeros(n)
	t.data[hot] = 1.0
	return t, nil
}

// Shape returns the tensor's dimensions. Callers must not mutate it.
func (t *Tensor) Shape() []int { return t.shape }

// Data returns the backing slice in row-major order.
func (t *Tensor) Data() []float64 { return t.data }

// Len returns the total number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// At returns the element at the given multi-dimensional index.
func (t *Tensor) At(idx ...int) float64 {
	return t.data[t.offset(idx...)]
}

// Set assigns the element at the given multi-dimensional index.
func (t *Tensor) Set(v float64, idx ...int) {
	t.data[t.offset(idx...)] = v
}

func (t *Tensor) offset(idx ...int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(idx), len(t.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d (size %d)", x, i, t.shape[i]))
		}
		off = off*t.shape[i] + x
	}
	return off
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	out, _ := New(t.shape, data)
	return out
}

// Reshape returns a view-copy with a new shape of the same total size.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(t.data) {
		return nil, fmt.Errorf("tensor: cannot reshape %v (%d elements) to %v", t.shape, len(t.data), shape)
	}
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return New(shape, data)
}

// Unsqueeze returns a copy with a singleton dimension inserted at axis.
func (t *Tensor) Unsqueeze(axis int) (*Tensor, error) {
	if axis < 0 || axis > len(t.shape) {
		return nil, fmt.Errorf("tensor: unsqueeze axis %d out of range for rank %d", axis, len(t.shape))
	}
	shape := make([]int, 0, len(t.shape)+1)
	shape = append(shape, t.shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, t.shape[axis:]...)
	return t.Reshape(shape...)
}

// Squeeze returns a copy with the singleton dimension at axis removed.
func (t *Tensor) Squeeze(axis int) (*Tensor, error) {
	if axis < 0 || axis >= len(t.shape) {
		return nil, fmt.Errorf("tensor: squeeze axis %d out of range for rank %d", axis, len(t.shape))
	}
	if t.shape[axis] != 1 {
		return nil, fmt.Errorf("tensor: cannot squeeze axis %d of size %d", axis, t.shape[axis])
	}
	shape := make([]int, 0, len(t.shape)-1)
	shape = append(shape, t.shape[:axis]...)
	shape = append(shape, t.shape[axis+1:]...)
	if len(shape) == 0 {
		shape = []int{1}
	}
	return t.Reshape(shape...)
}

// Flatten returns a copy collapsed to [batch, rest], keeping the leading
// dimension.
func (t *Tensor) Flatten() (*Tensor, error) {
	if len(t.shape) < 2 {
		return t.Clone(), nil
	}
	rest := 1
	for _, d := range t.shape[1:] {
		rest *= d
	}
	return t.Reshape(t.shape[0], rest)
}

// Mean returns the arithmetic mean over all elements; zero for an empty
// tensor.
func (t *Tensor) Mean() float64 {
	if len(t.data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range t.data {
		sum += v
	}
	return sum / float64(len(t.data))
}

// SameShape reports whether two tensors have identical shapes.
func SameShape(a, b *Tensor) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return true
}

// Stack concatenates tensors of identical shape along a new leading axis.
func Stack(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("tensor: stack of zero tensors")
	}
	first := ts[0]
	for i, t := range ts[1:] {
		if !SameShape(first, t) {
			return nil, fmt.Errorf("tensor: stack shape mismatch at %d: %v vs %v", i+1, first.shape, t.shape)
		}
	}
	shape := append([]int{len(ts)}, first.shape...)
	data := make([]float64, 0, len(ts)*first.Len())
	for _, t := range ts {
		data = append(data, t.data...)
	}
	return New(shape, data)
}

// String renders shape and a truncated data preview, for logs and test
// failures.
func (t *Tensor) String() string {
	const preview = 8
	var b strings.Builder
	fmt.Fprintf(&b, "Tensor%v[", t.shape)
	for i, v := range t.data {
		if i == preview {
			b.WriteString("...")
			break
		}
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%g", v)
	}
	b.WriteString("]")
	return b.String()
}
