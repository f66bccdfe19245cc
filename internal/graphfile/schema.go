package graphfile

import (
	"github.com/hashicorp/hcl/v2"
)

// hclGraphFile is the top-level structure of a graph file for decoding.
type hclGraphFile struct {
	Leaves []*hclLeaf     `hcl:"leaf,block"`
	Nodes  []*hclNode     `hcl:"node,block"`
	Output hcl.Expression `hcl:"output"`
}

// hclLeaf is a `leaf "name" { ... }` block. Exactly one of value and from
// must be set.
type hclLeaf struct {
	Name         string         `hcl:"name,label"`
	Value        hcl.Expression `hcl:"value,optional"`
	From         hcl.Expression `hcl:"from,optional"`
	Tensor       *string        `hcl:"tensor,optional"`
	DType        *string        `hcl:"dtype,optional"`
	RequiresGrad *bool          `hcl:"requires_grad,optional"`
}

// hclNode is a `node "name" { ... }` block.
type hclNode struct {
	Name   string         `hcl:"name,label"`
	Op     hcl.Expression `hcl:"op"`
	Inputs hcl.Expression `hcl:"inputs"`
	Scale  hcl.Expression `hcl:"scale,optional"`
}

// decl is a leaf or node after its attributes have been evaluated.
type decl struct {
	name   string
	leaf   *hclLeaf
	node   *hclNode
	op     string
	inputs []string
	rng    hcl.Range
}
