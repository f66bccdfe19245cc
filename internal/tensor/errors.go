package tensor

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is the sentinel wrapped by every ShapeError.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeError reports operand shapes that are incompatible with the
// requested operation.
type ShapeError struct {
	Op     string // Operation name (e.g., "add", "matmul")
	Left   Shape  // First operand shape
	Right  Shape  // Second operand shape, nil for unary checks
	Reason string // Additional details
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Right == nil {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Left, e.Reason)
	}
	return fmt.Sprintf("%s: %v vs %v: %s", e.Op, e.Left, e.Right, e.Reason)
}

// Unwrap allows errors.Is(err, ErrShapeMismatch).
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// CheckSameShape returns a ShapeError unless a and b have identical shapes.
// No broadcasting is performed.
func CheckSameShape(op string, a, b Shape) error {
	if a.Equal(b) {
		return nil
	}
	return &ShapeError{Op: op, Left: a, Right: b, Reason: "shapes must be equal"}
}

// CheckMatMul validates operand shapes for a (batched) matrix multiply:
// both operands need rank >= 2, equal leading axes, and a's last axis must
// match b's second-to-last axis. It returns the result shape.
func CheckMatMul(a, b Shape) (Shape, error) {
	if len(a) < 2 || len(b) < 2 {
		return nil, &ShapeError{Op: "matmul", Left: a, Right: b, Reason: "operands must have rank >= 2"}
	}
	if len(a) != len(b) || !a.BatchDims().Equal(b.BatchDims()) {
		return nil, &ShapeError{Op: "matmul", Left: a, Right: b, Reason: "batch dimensions must be equal"}
	}
	k, kAlt := a[len(a)-1], b[len(b)-2]
	if k != kAlt {
		return nil, &ShapeError{
			Op:     "matmul",
			Left:   a,
			Right:  b,
			Reason: fmt.Sprintf("inner dimensions differ (%d != %d)", k, kAlt),
		}
	}
	out := a.Clone()
	out[len(out)-1] = b[len(b)-1]
	return out, nil
}

// ErrDTypeMismatch reports operands with different element types.
var ErrDTypeMismatch = errors.New("dtype mismatch")

// CheckSameDType returns an error wrapping ErrDTypeMismatch unless a and b
// share a dtype.
func CheckSameDType(op string, a, b DataType) error {
	if a == b {
		return nil
	}
	return fmt.Errorf("%s: %s vs %s: %w", op, a, b, ErrDTypeMismatch)
}
