package graphfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphgrad/internal/autodiff/ops"
	"github.com/born-ml/graphgrad/internal/backend/cpu"
	"github.com/born-ml/graphgrad/internal/graphfile"
	"github.com/born-ml/graphgrad/internal/serialization"
	"github.com/born-ml/graphgrad/internal/tensor"
)

const matmulGraph = `
leaf "a" { value = [[1, 2], [3, 4]] }
leaf "b" { value = [[5, 6], [7, 8]] }

node "p" {
  op     = "matmul"
  inputs = ["a", "b"]
}

output = "p"
`

func parse(t *testing.T, src string) (*graphfile.Loaded, error) {
	t.Helper()
	return graphfile.Parse(context.Background(), []byte(src), "test.hcl", cpu.New())
}

func requireDiagnostic(t *testing.T, err error, summary string) {
	t.Helper()
	require.Error(t, err)
	var diags hcl.Diagnostics
	require.True(t, errors.As(err, &diags), "error should carry hcl.Diagnostics: %v", err)
	require.NotEmpty(t, diags)
	assert.Equal(t, summary, diags[0].Summary)
}

func TestLoad_MatMulFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.hcl")
	require.NoError(t, os.WriteFile(path, []byte(matmulGraph), 0o600))

	loaded, err := graphfile.Load(context.Background(), path, cpu.New())
	require.NoError(t, err)

	g := loaded.Graph
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, "p", loaded.OutputName)
	assert.Equal(t, ops.KindMatMul, g.Kind(loaded.Output))
	assert.Equal(t, "p", g.Name(loaded.Output))
	assert.Equal(t, []float64{19, 22, 43, 50}, g.Value(loaded.Output).AsFloat64())

	require.NoError(t, g.Backward(loaded.Output))
	assert.Equal(t, []float64{11, 15, 11, 15}, g.Grad(loaded.Nodes["a"]).AsFloat64())
	assert.Equal(t, []float64{4, 4, 6, 6}, g.Grad(loaded.Nodes["b"]).AsFloat64())
}

func TestParse_DeclarationsInAnyOrder(t *testing.T) {
	loaded, err := parse(t, `
output = "loss"

node "loss" {
  op     = "scale"
  inputs = ["sum"]
  scale  = 0.5
}

node "sum" {
  op     = "add"
  inputs = ["x", "y"]
}

leaf "x" { value = [1, 2, 3] }
leaf "y" { value = [4, 5, 6] }
`)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"x", "y", "sum", "loss"}, loaded.Order); diff != "" {
		t.Errorf("build order mismatch (-want +got):\n%s", diff)
	}

	g := loaded.Graph
	assert.Equal(t, []float64{2.5, 3.5, 4.5}, g.Value(loaded.Output).AsFloat64())

	for i, name := range loaded.Order {
		for _, parent := range g.Parents(loaded.Nodes[name]) {
			assert.Less(t, int(parent), int(loaded.Nodes[name]), "node %d (%s)", i, name)
		}
	}

	require.NoError(t, g.Backward(loaded.Output))
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, g.Grad(loaded.Nodes["x"]).AsFloat64())
}

func TestParse_AllOperators(t *testing.T) {
	loaded, err := parse(t, `
leaf "a" { value = [[1, 2], [3, 4]] }
leaf "b" { value = [[1, 1], [1, 1]] }
leaf "k" { value = [3] }

node "s"  {
  op     = "sub"
  inputs = ["a", "b"]
}
node "sb" {
  op     = "scale_by"
  inputs = ["s", "k"]
}
node "mm" {
  op     = "matmul"
  inputs = ["sb", "b"]
}

output = "mm"
`)
	require.NoError(t, err)

	g := loaded.Graph
	assert.Equal(t, ops.KindSub, g.Kind(loaded.Nodes["s"]))
	assert.Equal(t, ops.KindScaleBy, g.Kind(loaded.Nodes["sb"]))
	assert.Equal(t, []float64{0, 3, 6, 9}, g.Value(loaded.Nodes["sb"]).AsFloat64())
	assert.Equal(t, []float64{3, 3, 15, 15}, g.Value(loaded.Output).AsFloat64())
}

func TestParse_LeafValues(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		shape tensor.Shape
		dtype tensor.DataType
		data  []float64
	}{
		{"scalar", `value = 2.5`, tensor.Shape{}, tensor.Float64, []float64{2.5}},
		{"vector", `value = [1, 2]`, tensor.Shape{2}, tensor.Float64, []float64{1, 2}},
		{"rank3", `value = [[[1], [2]], [[3], [4]]]`, tensor.Shape{2, 2, 1}, tensor.Float64, []float64{1, 2, 3, 4}},
		{"float32", "value = [0.5, 1]\n  dtype = \"float32\"", tensor.Shape{2}, tensor.Float32, []float64{0.5, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loaded, err := parse(t, "leaf \"v\" {\n  "+tt.src+"\n}\noutput = \"v\"\n")
			require.NoError(t, err)

			value := loaded.Graph.Value(loaded.Output)
			if diff := cmp.Diff(tt.shape, value.Shape()); diff != "" {
				t.Errorf("shape mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.dtype, value.DType())
			assert.Equal(t, tt.data, value.Float64s())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		summary string
	}{
		{
			name: "unknown input",
			src: `
leaf "a" { value = [1] }
node "c" {
  op     = "add"
  inputs = ["a", "missing"]
}
output = "c"`,
			summary: "Unknown input",
		},
		{
			name: "cycle",
			src: `
leaf "a" { value = [1] }
node "x" {
  op     = "add"
  inputs = ["a", "y"]
}
node "y" {
  op     = "add"
  inputs = ["a", "x"]
}
output = "y"`,
			summary: "Dependency cycle",
		},
		{
			name: "duplicate name",
			src: `
leaf "a" { value = [1] }
leaf "a" { value = [2] }
output = "a"`,
			summary: "Duplicate name",
		},
		{
			name: "unknown output",
			src: `
leaf "a" { value = [1] }
output = "b"`,
			summary: "Unknown output",
		},
		{
			name: "unknown operator",
			src: `
leaf "a" { value = [1] }
node "c" {
  op     = "mul"
  inputs = ["a", "a"]
}
output = "c"`,
			summary: "Unknown operator",
		},
		{
			name: "wrong arity",
			src: `
leaf "a" { value = [1] }
node "c" {
  op     = "add"
  inputs = ["a"]
}
output = "c"`,
			summary: "Wrong number of inputs",
		},
		{
			name: "scale without factor",
			src: `
leaf "a" { value = [1] }
node "c" {
  op     = "scale"
  inputs = ["a"]
}
output = "c"`,
			summary: "Missing scale",
		},
		{
			name: "shape mismatch",
			src: `
leaf "a" { value = [1, 2, 3] }
leaf "b" { value = [1, 2, 3, 4] }
node "c" {
  op     = "add"
  inputs = ["a", "b"]
}
output = "c"`,
			summary: "Invalid operands",
		},
		{
			name: "scale on another operator",
			src: `
leaf "a" { value = [1] }
node "c" {
  op     = "add"
  inputs = ["a", "a"]
  scale  = 99
}
output = "c"`,
			summary: "Unexpected attribute",
		},
		{
			name: "reserved gradient name",
			src: `
leaf "a" { value = [1, 2] }
node "a.grad" {
  op     = "scale"
  inputs = ["a"]
  scale  = 3
}
output = "a.grad"`,
			summary: "Reserved name",
		},
		{
			name:    "leaf without source",
			src:     "leaf \"a\" {\n  dtype = \"float64\"\n}\noutput = \"a\"",
			summary: "Missing leaf source",
		},
		{
			name:    "leaf with two sources",
			src:     "leaf \"a\" {\n  value = [1]\n  from  = \"w.safetensors\"\n}\noutput = \"a\"",
			summary: "Conflicting leaf source",
		},
		{
			name:    "missing tensor file",
			src:     "leaf \"a\" { from = \"does-not-exist.safetensors\" }\noutput = \"a\"",
			summary: "Unreadable tensor file",
		},
		{
			name:    "ragged value",
			src:     "leaf \"a\" { value = [[1, 2], [3]] }\noutput = \"a\"",
			summary: "Invalid leaf value",
		},
		{
			name:    "non-numeric value",
			src:     "leaf \"a\" { value = [\"x\"] }\noutput = \"a\"",
			summary: "Invalid leaf value",
		},
		{
			name:    "bad dtype",
			src:     "leaf \"a\" {\n  value = [1]\n  dtype = \"int8\"\n}\noutput = \"a\"",
			summary: "Unsupported dtype",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.src)
			requireDiagnostic(t, err, tt.summary)
		})
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := parse(t, `leaf "a" { value = [1, }`)
	require.Error(t, err)
	var diags hcl.Diagnostics
	assert.True(t, errors.As(err, &diags))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := graphfile.Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"), cpu.New())
	assert.Error(t, err)
}

func TestParse_FrozenLeaf(t *testing.T) {
	loaded, err := parse(t, `
leaf "a" { value = [[1, 2], [3, 4]] }
leaf "b" {
  value         = [[5, 6], [7, 8]]
  requires_grad = false
}

node "p" {
  op     = "matmul"
  inputs = ["a", "b"]
}

output = "p"
`)
	require.NoError(t, err)

	g := loaded.Graph
	assert.True(t, g.RequiresGrad(loaded.Nodes["a"]))
	assert.False(t, g.RequiresGrad(loaded.Nodes["b"]))

	require.NoError(t, g.Backward(loaded.Output))
	assert.Equal(t, []float64{11, 15, 11, 15}, g.Grad(loaded.Nodes["a"]).AsFloat64())
	assert.Nil(t, g.Grad(loaded.Nodes["b"]))
}

func TestLoad_LeafFromSafeTensors(t *testing.T) {
	dir := t.TempDir()
	weights := map[string]*tensor.RawTensor{
		"w":    tensor.MustFromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}),
		"bias": tensor.MustFromSlice([]float32{1, 1, 1, 1}, tensor.Shape{2, 2}),
	}
	require.NoError(t, serialization.WriteSafeTensors(filepath.Join(dir, "weights.safetensors"), weights, nil))

	src := `
leaf "w" { from = "weights.safetensors" }
leaf "b" {
  from   = "weights.safetensors"
  tensor = "bias"
  dtype  = "float32"
}

node "sum" {
  op     = "add"
  inputs = ["w", "b"]
}

output = "sum"
`
	path := filepath.Join(dir, "graph.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	loaded, err := graphfile.Load(context.Background(), path, cpu.New())
	require.NoError(t, err)

	g := loaded.Graph
	assert.Equal(t, tensor.Float32, g.Value(loaded.Output).DType())
	assert.Equal(t, []float32{2, 3, 4, 5}, g.Value(loaded.Output).AsFloat32())
}

func TestLoad_LeafFromSafeTensorsErrors(t *testing.T) {
	dir := t.TempDir()
	weights := map[string]*tensor.RawTensor{
		"w": tensor.MustFromSlice([]float32{1, 2}, tensor.Shape{2}),
	}
	require.NoError(t, serialization.WriteSafeTensors(filepath.Join(dir, "weights.safetensors"), weights, nil))

	tests := []struct {
		name    string
		leaf    string
		summary string
	}{
		{"unknown tensor", `leaf "x" { from = "weights.safetensors" }`, "Unknown tensor"},
		{"dtype mismatch", "leaf \"x\" {\n  from   = \"weights.safetensors\"\n  tensor = \"w\"\n  dtype  = \"float64\"\n}", "Unsupported dtype"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "graph.hcl")
			require.NoError(t, os.WriteFile(path, []byte(tt.leaf+"\noutput = \"x\"\n"), 0o600))

			_, err := graphfile.Load(context.Background(), path, cpu.New())
			requireDiagnostic(t, err, tt.summary)
		})
	}
}
