package graphfile

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/autodiff/ops"
	"github.com/born-ml/graphgrad/internal/ctxlog"
	"github.com/born-ml/graphgrad/internal/serialization"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Loaded is a graph built from a graph file.
type Loaded struct {
	Graph *autodiff.Graph

	// Nodes maps every declared name to its node.
	Nodes map[string]autodiff.NodeID

	// Order lists declared names in the order their nodes were created.
	Order []string

	Output     autodiff.NodeID
	OutputName string
}

// Load parses the graph file at path and builds it on backend.
func Load(ctx context.Context, path string, backend tensor.Backend) (*Loaded, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading graph file", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse graph file %s: %w", path, diags)
	}
	return build(ctx, path, file, backend)
}

// Parse is Load for in-memory source. filename is used in diagnostics.
func Parse(ctx context.Context, src []byte, filename string, backend tensor.Backend) (*Loaded, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse graph file %s: %w", filename, diags)
	}
	return build(ctx, filename, file, backend)
}

func build(ctx context.Context, filename string, file *hcl.File, backend tensor.Backend) (*Loaded, error) {
	logger := ctxlog.FromContext(ctx)

	var parsed hclGraphFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode graph file %s: %w", filename, diags)
	}

	decls, diags := collect(&parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid graph file %s: %w", filename, diags)
	}

	var outputName string
	if diags := gohcl.DecodeExpression(parsed.Output, nil, &outputName); diags.HasErrors() {
		return nil, fmt.Errorf("invalid graph file %s: %w", filename, diags)
	}
	if _, ok := decls[outputName]; !ok {
		rng := parsed.Output.Range()
		return nil, fmt.Errorf("invalid graph file %s: %w", filename, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown output",
			Detail:   fmt.Sprintf("No leaf or node named %q is declared.", outputName),
			Subject:  &rng,
		}})
	}

	loaded := &Loaded{
		Graph: autodiff.NewGraph(backend),
		Nodes: make(map[string]autodiff.NodeID, len(decls)),
	}
	b := &builder{
		decls:   decls,
		state:   make(map[string]int, len(decls)),
		baseDir: filepath.Dir(filename),
		files:   make(map[string]map[string]*tensor.RawTensor),
		loaded:  loaded,
	}

	// Build in source order so node ids follow the file wherever
	// dependencies allow.
	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return decls[names[i]].rng.Start.Byte < decls[names[j]].rng.Start.Byte
	})
	for _, name := range names {
		if diags := b.visit(name); diags.HasErrors() {
			return nil, fmt.Errorf("invalid graph file %s: %w", filename, diags)
		}
	}

	loaded.OutputName = outputName
	loaded.Output = loaded.Nodes[outputName]

	logger.Debug("Graph file loaded", "path", filename, "nodes", loaded.Graph.Len(), "output", outputName)
	return loaded, nil
}

// collect evaluates every block's attributes and indexes the declarations
// by name.
func collect(parsed *hclGraphFile) (map[string]*decl, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	decls := make(map[string]*decl, len(parsed.Leaves)+len(parsed.Nodes))

	add := func(d *decl) {
		if strings.HasSuffix(d.name, GradSuffix) {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Reserved name",
				Detail:   fmt.Sprintf("%q ends in %q, which is reserved for exported gradients.", d.name, GradSuffix),
				Subject:  d.rng.Ptr(),
			})
			return
		}
		if prev, ok := decls[d.name]; ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate name",
				Detail:   fmt.Sprintf("%q is already declared at %s.", d.name, prev.rng),
				Subject:  d.rng.Ptr(),
			})
			return
		}
		decls[d.name] = d
	}

	for _, leaf := range parsed.Leaves {
		rng := leaf.Value.Range()
		if isSet(leaf.From) && !isSet(leaf.Value) {
			rng = leaf.From.Range()
		}
		add(&decl{name: leaf.Name, leaf: leaf, rng: rng})
	}

	for _, node := range parsed.Nodes {
		d := &decl{name: node.Name, node: node, rng: node.Op.Range()}
		diags = append(diags, gohcl.DecodeExpression(node.Op, nil, &d.op)...)
		diags = append(diags, gohcl.DecodeExpression(node.Inputs, nil, &d.inputs)...)
		add(d)
	}

	return decls, diags
}

// arity is the number of inputs each operator accepts in a graph file.
var arity = map[ops.Kind]int{
	ops.KindAdd:     2,
	ops.KindSub:     2,
	ops.KindScale:   1,
	ops.KindScaleBy: 2,
	ops.KindMatMul:  2,
}

// GradSuffix is appended to a node name to name its exported gradient.
// Declared names may not end with it.
const GradSuffix = ".grad"

const (
	unvisited = iota
	visiting
	built
)

type builder struct {
	decls   map[string]*decl
	state   map[string]int
	baseDir string // leaf `from` paths are relative to the graph file
	files   map[string]map[string]*tensor.RawTensor
	loaded  *Loaded
}

// visit creates the node for name after creating all of its inputs.
func (b *builder) visit(name string) hcl.Diagnostics {
	switch b.state[name] {
	case built:
		return nil
	case visiting:
		d := b.decls[name]
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Dependency cycle",
			Detail:   fmt.Sprintf("%q depends on itself through its inputs.", name),
			Subject:  d.rng.Ptr(),
		}}
	}

	d := b.decls[name]
	b.state[name] = visiting

	if d.node != nil {
		for _, input := range d.inputs {
			if _, ok := b.decls[input]; !ok {
				return hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  "Unknown input",
					Detail:   fmt.Sprintf("Node %q references %q, which is not declared.", name, input),
					Subject:  d.node.Inputs.Range().Ptr(),
				}}
			}
			if diags := b.visit(input); diags.HasErrors() {
				return diags
			}
		}
	}

	id, diags := b.create(d)
	if diags.HasErrors() {
		return diags
	}

	b.state[name] = built
	b.loaded.Nodes[name] = id
	b.loaded.Order = append(b.loaded.Order, name)
	return nil
}

func (b *builder) create(d *decl) (autodiff.NodeID, hcl.Diagnostics) {
	g := b.loaded.Graph

	if d.leaf != nil {
		return b.createLeaf(d)
	}

	inputs := make([]autodiff.NodeID, len(d.inputs))
	for i, name := range d.inputs {
		inputs[i] = b.loaded.Nodes[name]
	}

	want, ok := arity[ops.Kind(d.op)]
	if !ok {
		return -1, nodeError(d, "Unknown operator",
			fmt.Sprintf("%q is not one of add, sub, scale, scale_by, matmul.", d.op), d.rng)
	}
	if ops.Kind(d.op) != ops.KindScale && isSet(d.node.Scale) {
		return -1, nodeError(d, "Unexpected attribute",
			fmt.Sprintf(`Only operator "scale" takes a "scale" attribute, not %q.`, d.op), d.node.Scale.Range())
	}
	if len(inputs) != want {
		return -1, nodeError(d, "Wrong number of inputs",
			fmt.Sprintf("Operator %q takes %d inputs, got %d.", d.op, want, len(inputs)), d.node.Inputs.Range())
	}

	var (
		id  autodiff.NodeID
		err error
	)
	switch ops.Kind(d.op) {
	case ops.KindAdd:
		id, err = g.Add(inputs[0], inputs[1])
	case ops.KindSub:
		id, err = g.Sub(inputs[0], inputs[1])
	case ops.KindScale:
		if !isSet(d.node.Scale) {
			return -1, nodeError(d, "Missing scale",
				`Operator "scale" requires a "scale" attribute.`, d.rng)
		}
		var factor float64
		if diags := gohcl.DecodeExpression(d.node.Scale, nil, &factor); diags.HasErrors() {
			return -1, diags
		}
		id, err = g.Scale(inputs[0], factor)
	case ops.KindScaleBy:
		id, err = g.ScaleBy(inputs[0], inputs[1])
	case ops.KindMatMul:
		id, err = g.MatMul(inputs[0], inputs[1])
	}
	if err != nil {
		return -1, nodeError(d, "Invalid operands", err.Error(), d.node.Inputs.Range())
	}

	if err := g.SetName(id, d.name); err != nil {
		return -1, nodeError(d, "Invalid node", err.Error(), d.rng)
	}
	return id, nil
}

func (b *builder) createLeaf(d *decl) (autodiff.NodeID, hcl.Diagnostics) {
	leaf := d.leaf

	var dtype *tensor.DataType
	if leaf.DType != nil {
		parsed, ok := tensor.ParseDataType(*leaf.DType)
		if !ok {
			return -1, nodeError(d, "Unsupported dtype",
				fmt.Sprintf("%q is not float32 or float64.", *leaf.DType), d.rng)
		}
		dtype = &parsed
	}

	var (
		raw   *tensor.RawTensor
		diags hcl.Diagnostics
	)
	switch hasValue, hasFrom := isSet(leaf.Value), isSet(leaf.From); {
	case hasValue && hasFrom:
		return -1, nodeError(d, "Conflicting leaf source",
			`Set either "value" or "from", not both.`, leaf.From.Range())
	case hasValue:
		raw, diags = decodeLeafValue(d, dtype)
	case hasFrom:
		raw, diags = b.readLeafFile(d, dtype)
	default:
		return -1, nodeError(d, "Missing leaf source",
			`A leaf requires a "value" or a "from" attribute.`, d.rng)
	}
	if diags.HasErrors() {
		return -1, diags
	}

	var opts []autodiff.LeafOption
	if leaf.RequiresGrad != nil {
		opts = append(opts, autodiff.WithRequiresGrad(*leaf.RequiresGrad))
	}
	return b.loaded.Graph.NamedLeaf(d.name, raw, opts...), nil
}

func decodeLeafValue(d *decl, dtype *tensor.DataType) (*tensor.RawTensor, hcl.Diagnostics) {
	val, diags := d.leaf.Value.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}

	dt := tensor.Float64
	if dtype != nil {
		dt = *dtype
	}
	raw, err := decodeTensor(val, dt)
	if err != nil {
		return nil, nodeError(d, "Invalid leaf value", err.Error(), d.rng)
	}
	return raw, nil
}

// readLeafFile loads a leaf from a SafeTensors file. The tensor key defaults
// to the leaf name. Each file is read once per load.
func (b *builder) readLeafFile(d *decl, dtype *tensor.DataType) (*tensor.RawTensor, hcl.Diagnostics) {
	var path string
	if diags := gohcl.DecodeExpression(d.leaf.From, nil, &path); diags.HasErrors() {
		return nil, diags
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.baseDir, path)
	}

	tensors, ok := b.files[path]
	if !ok {
		var err error
		tensors, _, err = serialization.ReadSafeTensors(path)
		if err != nil {
			return nil, nodeError(d, "Unreadable tensor file", err.Error(), d.leaf.From.Range())
		}
		b.files[path] = tensors
	}

	key := d.name
	if d.leaf.Tensor != nil {
		key = *d.leaf.Tensor
	}
	raw, ok := tensors[key]
	if !ok {
		return nil, nodeError(d, "Unknown tensor",
			fmt.Sprintf("%s has no tensor named %q.", path, key), d.leaf.From.Range())
	}
	if dtype != nil && raw.DType() != *dtype {
		return nil, nodeError(d, "Unsupported dtype",
			fmt.Sprintf("Tensor %q is %s, not %s.", key, raw.DType(), *dtype), d.rng)
	}
	return raw, nil
}

// isSet reports whether an optional attribute was given. gohcl fills a
// missing hcl.Expression field with a static null.
func isSet(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	val, diags := expr.Value(nil)
	return diags.HasErrors() || !val.IsNull()
}

func nodeError(d *decl, summary, detail string, rng hcl.Range) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf("In %q: %s", d.name, detail),
		Subject:  rng.Ptr(),
	}}
}
