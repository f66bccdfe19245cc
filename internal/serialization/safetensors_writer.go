package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// metadataKey is the reserved header entry holding string metadata.
const metadataKey = "__metadata__"

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// SafeTensorsWriter writes tensors in SafeTensors format.
type SafeTensorsWriter struct {
	file   *os.File
	closed bool
}

// NewSafeTensorsWriter creates a new SafeTensors file writer.
func NewSafeTensorsWriter(path string) (*SafeTensorsWriter, error) {
	//nolint:gosec // G304: output path is chosen by the user
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &SafeTensorsWriter{
		file:   file,
		closed: false,
	}, nil
}

// WriteSafeTensors writes tensors to a SafeTensors file.
// Tensors are written in alphabetical order by name.
func WriteSafeTensors(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	writer, err := NewSafeTensorsWriter(path)
	if err != nil {
		return err
	}

	if err := writer.WriteStateDict(tensors, metadata); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// WriteStateDict writes a name to tensor map to the file.
func (w *SafeTensorsWriter) WriteStateDict(stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	return Encode(w.file, stateDict, metadata)
}

// Close closes the writer and the underlying file.
func (w *SafeTensorsWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// Encode writes stateDict in SafeTensors format to out.
func Encode(out io.Writer, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	// SafeTensors requires sorted names.
	tensorNames := make([]string, 0, len(stateDict))
	for name := range stateDict {
		tensorNames = append(tensorNames, name)
	}
	sort.Strings(tensorNames)

	header := make(map[string]any, len(stateDict)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	var currentOffset int64
	for _, name := range tensorNames {
		if err := ValidateTensorName(name); err != nil {
			return err
		}

		raw := stateDict[name]
		dtype, err := dtypeToSafeTensors(raw.DType())
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}

		shape := raw.Shape()
		shapeInt64 := make([]int64, len(shape))
		for i, dim := range shape {
			shapeInt64[i] = int64(dim)
		}

		size := int64(raw.ByteSize())
		header[name] = SafeTensorHeader{
			DType:       dtype,
			Shape:       shapeInt64,
			DataOffsets: [2]int64{currentOffset, currentOffset + size},
		}
		currentOffset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	headerSize := uint64(len(headerJSON))
	if err := binary.Write(out, binary.LittleEndian, headerSize); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}

	if _, err := out.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, name := range tensorNames {
		if _, err := out.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	return nil
}

// dtypeToSafeTensors converts tensor.DataType to a SafeTensors dtype string.
func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}

// dtypeFromSafeTensors is the inverse of dtypeToSafeTensors.
func dtypeFromSafeTensors(name string) (tensor.DataType, error) {
	switch name {
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedDType, name)
	}
}
