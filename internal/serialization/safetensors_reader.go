package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// ReadSafeTensors reads every tensor from a SafeTensors file.
func ReadSafeTensors(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	//nolint:gosec // G304: input path is chosen by the user
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return Decode(file)
}

// Decode reads a SafeTensors stream produced by Encode or any other
// conforming writer. Offsets are validated before any data is copied.
func Decode(in io.Reader) (map[string]*tensor.RawTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(in, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(in, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &entries); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header: %w", err)
	}

	var metadata map[string]string
	if rawMeta, ok := entries[metadataKey]; ok {
		if err := json.Unmarshal(rawMeta, &metadata); err != nil {
			return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
		}
		delete(entries, metadataKey)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	headers := make(map[string]SafeTensorHeader, len(entries))
	metas := make([]TensorMeta, 0, len(entries))
	for name, rawEntry := range entries {
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		var h SafeTensorHeader
		if err := json.Unmarshal(rawEntry, &h); err != nil {
			return nil, nil, fmt.Errorf("tensor %s: failed to parse header entry: %w", name, err)
		}
		headers[name] = h
		metas = append(metas, TensorMeta{
			Name:   name,
			Offset: h.DataOffsets[0],
			Size:   h.DataOffsets[1] - h.DataOffsets[0],
		})
	}

	if err := ValidateTensorOffsets(metas, int64(len(data))); err != nil {
		return nil, nil, err
	}

	tensors := make(map[string]*tensor.RawTensor, len(headers))
	for name, h := range headers {
		raw, err := decodeTensor(name, h, data)
		if err != nil {
			return nil, nil, err
		}
		tensors[name] = raw
	}

	return tensors, metadata, nil
}

func decodeTensor(name string, h SafeTensorHeader, data []byte) (*tensor.RawTensor, error) {
	dtype, err := dtypeFromSafeTensors(h.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	shape := make(tensor.Shape, len(h.Shape))
	for i, dim := range h.Shape {
		shape[i] = int(dim)
	}

	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	start, end := h.DataOffsets[0], h.DataOffsets[1]
	if end-start != int64(raw.ByteSize()) {
		return nil, &ValidationError{
			Type:    "size_mismatch",
			Tensor:  name,
			Details: fmt.Sprintf("shape %v needs %d bytes, offsets span %d", shape, raw.ByteSize(), end-start),
		}
	}

	copy(raw.Data(), data[start:end])
	return raw, nil
}
