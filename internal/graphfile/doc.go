// Package graphfile loads computation graphs described in HCL.
//
// A graph file declares leaf tensors and operator nodes by name, plus the
// node backward is run from:
//
//	leaf "a" { value = [[1, 2], [3, 4]] }
//	leaf "b" { value = [[5, 6], [7, 8]] }
//
//	node "p" {
//	  op     = "matmul"
//	  inputs = ["a", "b"]
//	}
//
//	output = "p"
//
// A leaf may instead read its value from a SafeTensors file with
// from = "weights.safetensors" (and optionally tensor and dtype), and may be
// frozen with requires_grad = false. Names ending in ".grad" are reserved for
// exported gradients.
//
// Declarations may appear in any order. The loader resolves inputs by name,
// builds nodes after their inputs and reports unknown names, duplicate names
// and dependency cycles as HCL diagnostics pointing at the offending source.
package graphfile
