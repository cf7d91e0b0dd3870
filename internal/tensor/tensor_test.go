package tensor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_ShapeValidation(t *testing.T) {
	t.Parallel()

	_, err := New([]int{2, 3}, make([]float64, 5))
	require.Error(t, err)

	_, err = New(nil, nil)
	require.Error(t, err)

	tr, err := New([]int{2, 3}, make([]float64, 6))
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, tr.Shape())
	require.Equal(t, 6, tr.Len())
}

func TestOneHot(t *testing.T) {
	t.Parallel()

	oh, err := OneHot(4, 2)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 1, 0}, oh.Data())

	sum := 0.0
	for _, v := range oh.Data() {
		sum += v
	}
	require.Equal(t, 1.0, sum)

	_, err = OneHot(4, 4)
	require.Error(t, err)
	_, err = OneHot(4, -1)
	require.Error(t, err)
}

func TestAtSet_RowMajorLayout(t *testing.T) {
	t.Parallel()

	tr := Zeros(2, 3)
	tr.Set(5, 1, 2)
	require.Equal(t, 5.0, tr.At(1, 2))
	require.Equal(t, 5.0, tr.Data()[5])

	require.Panics(t, func() { tr.At(2, 0) })
	require.Panics(t, func() { tr.At(0) })
}

func TestReshapeFamily(t *testing.T) {
	t.Parallel()

	tr, err := New([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	re, err := tr.Reshape(3, 2)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, re.Shape())
	require.Equal(t, tr.Data(), re.Data())

	_, err = tr.Reshape(4, 2)
	require.Error(t, err)

	un, err := tr.Unsqueeze(1)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1, 3}, un.Shape())

	sq, err := un.Squeeze(1)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, sq.Shape())

	_, err = tr.Squeeze(0)
	require.Error(t, err, "cannot squeeze a non-singleton axis")

	fl, err := un.Flatten()
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, fl.Shape())
}

func TestClone_IsIndependent(t *testing.T) {
	t.Parallel()

	tr, err := New([]int{2}, []float64{1, 2})
	require.NoError(t, err)
	cl := tr.Clone()
	cl.Set(9, 0)
	require.Equal(t, 1.0, tr.At(0))
}

func TestStack(t *testing.T) {
	t.Parallel()

	a, err := New([]int{2}, []float64{1, 2})
	require.NoError(t, err)
	b, err := New([]int{2}, []float64{3, 4})
	require.NoError(t, err)

	st, err := Stack([]*Tensor{a, b})
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, st.Shape())
	require.Equal(t, []float64{1, 2, 3, 4}, st.Data())

	c := Zeros(3)
	_, err = Stack([]*Tensor{a, c})
	require.Error(t, err)

	_, err = Stack(nil)
	require.Error(t, err)
}

func TestMean(t *testing.T) {
	t.Parallel()

	tr, err := New([]int{4}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 2.5, tr.Mean())
}
