// Package serialization writes and reads graph tensors in the SafeTensors
// format used by HuggingFace tooling:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON, tensor name -> {dtype, shape, data_offsets}]
//	[tensor data: raw little-endian bytes]
//
// Only F32 and F64 tensors are supported, matching the element types the
// autodiff engine computes with.
package serialization
