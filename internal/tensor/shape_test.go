package tensor_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphgrad/internal/tensor"
)

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		shape tensor.Shape
		want  int
	}{
		{tensor.Shape{}, 1},
		{tensor.Shape{3}, 3},
		{tensor.Shape{2, 3}, 6},
		{tensor.Shape{2, 3, 4}, 24},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", tt.shape)
	}
}

func TestShape_Validate(t *testing.T) {
	assert.NoError(t, tensor.Shape{2, 3}.Validate())
	assert.NoError(t, tensor.Shape{}.Validate())
	assert.Error(t, tensor.Shape{2, 0}.Validate())
	assert.Error(t, tensor.Shape{-1}.Validate())
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, tensor.Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{}, tensor.Shape{}.ComputeStrides())
}

func TestShape_SwapLastTwo(t *testing.T) {
	assert.Equal(t, []int{1, 0}, tensor.Shape{2, 3}.SwapLastTwo())
	assert.Equal(t, []int{0, 1, 3, 2}, tensor.Shape{5, 4, 2, 3}.SwapLastTwo())
	assert.Equal(t, []int{0}, tensor.Shape{7}.SwapLastTwo())
}

func TestShape_String(t *testing.T) {
	assert.Equal(t, "()", tensor.Shape{}.String())
	assert.Equal(t, "(3,)", tensor.Shape{3}.String())
	assert.Equal(t, "(2, 3)", tensor.Shape{2, 3}.String())
}

func TestCheckSameShape(t *testing.T) {
	require.NoError(t, tensor.CheckSameShape("add", tensor.Shape{2, 2}, tensor.Shape{2, 2}))

	err := tensor.CheckSameShape("add", tensor.Shape{3}, tensor.Shape{4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	var shapeErr *tensor.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "add", shapeErr.Op)
	assert.Equal(t, tensor.Shape{3}, shapeErr.Left)
	assert.Equal(t, tensor.Shape{4}, shapeErr.Right)
	assert.Equal(t, "add: (3,) vs (4,): shapes must be equal", err.Error())
}

func TestCheckMatMul(t *testing.T) {
	tests := []struct {
		name    string
		a, b    tensor.Shape
		want    tensor.Shape
		wantErr bool
	}{
		{"2d", tensor.Shape{2, 3}, tensor.Shape{3, 4}, tensor.Shape{2, 4}, false},
		{"batched", tensor.Shape{5, 2, 3}, tensor.Shape{5, 3, 4}, tensor.Shape{5, 2, 4}, false},
		{"inner mismatch", tensor.Shape{1, 3}, tensor.Shape{1, 2}, nil, true},
		{"rank 1", tensor.Shape{3}, tensor.Shape{3, 1}, nil, true},
		{"batch mismatch", tensor.Shape{2, 2, 3}, tensor.Shape{3, 3, 4}, nil, true},
		{"rank mismatch", tensor.Shape{2, 2, 3}, tensor.Shape{3, 4}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tensor.CheckMatMul(tt.a, tt.b)
			if tt.wantErr {
				assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
