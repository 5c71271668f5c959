package tensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/latch-ml/latch/internal/native"
)

// Element is the constraint for Go element types with a native DataType
// counterpart. Only the exact built-in types are admitted: element data is
// dispatched by dynamic type, so a defined type (`type celsius float32`)
// must be converted to its underlying type by the caller first.
type Element interface {
	float32 | float64 | int32 | int64 | uint8 | bool
}

// inferDataType maps a generic element type to its runtime DataType.
func inferDataType[T Element](dummy T) native.DataType {
	switch any(dummy).(type) {
	case float32:
		return native.Float32
	case float64:
		return native.Float64
	case int32:
		return native.Int32
	case int64:
		return native.Int64
	case uint8:
		return native.Uint8
	case bool:
		return native.Bool
	default:
		panic("unsupported element type")
	}
}

// Zeros creates a zero-filled tensor.
func Zeros(rt *Runtime, shape native.Shape, dtype native.DataType) (*Tensor, error) {
	h := rt.lib.Alloc(shape, dtype, rt.lib.Device())
	return Wrap(rt, h, native.Null, shape, dtype, "zeros")
}

// Full creates a float32 tensor filled with value.
func Full(rt *Runtime, shape native.Shape, value float32) (*Tensor, error) {
	t, err := Zeros(rt, shape, native.Float32)
	if err != nil {
		return nil, err
	}
	data := make([]byte, shape.NumBytes(native.Float32))
	bits := math.Float32bits(value)
	for i := 0; i < len(data); i += 4 {
		binary.LittleEndian.PutUint32(data[i:], bits)
	}
	if err := t.SetData(data); err != nil {
		t.Dispose()
		return nil, err
	}
	return t, nil
}

// Ones creates a float32 tensor filled with ones.
func Ones(rt *Runtime, shape native.Shape) (*Tensor, error) {
	return Full(rt, shape, 1)
}

// FromSlice creates a tensor from a Go slice. The slice length must match
// the shape's element count.
func FromSlice[T Element](rt *Runtime, data []T, shape native.Shape) (*Tensor, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("fromslice: data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	var dummy T
	dtype := inferDataType(dummy)
	t, err := Zeros(rt, shape, dtype)
	if err != nil {
		return nil, err
	}
	if err := t.SetData(encodeSlice(data, dtype)); err != nil {
		t.Dispose()
		return nil, err
	}
	return t, nil
}

// Float32s reads the tensor back as a float32 slice. Fails when the tensor
// is not Float32.
func (t *Tensor) Float32s() ([]float32, error) {
	if t.DType() != native.Float32 {
		return nil, fmt.Errorf("float32s: tensor is %s", t.DType())
	}
	raw, err := t.Data()
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// SetFloat32s writes a float32 slice into the tensor.
func (t *Tensor) SetFloat32s(vals []float32) error {
	if t.DType() != native.Float32 {
		return fmt.Errorf("setfloat32s: tensor is %s", t.DType())
	}
	data := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return t.SetData(data)
}

// encodeSlice serializes elements little-endian, matching the native
// runtime's layout.
func encodeSlice[T Element](data []T, dtype native.DataType) []byte {
	out := make([]byte, len(data)*dtype.Size())
	for i, v := range data {
		switch dtype {
		case native.Float32:
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(asFloat(v))))
		case native.Float64:
			binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(asFloat(v)))
		case native.Int32:
			binary.LittleEndian.PutUint32(out[i*4:], uint32(int32(asInt(v))))
		case native.Int64:
			binary.LittleEndian.PutUint64(out[i*8:], uint64(asInt(v)))
		case native.Uint8:
			out[i] = uint8(asInt(v))
		case native.Bool:
			if asBool(v) {
				out[i] = 1
			}
		}
	}
	return out
}

func asFloat[T Element](v T) float64 {
	switch x := any(v).(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint8:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	}
	return 0
}

func asInt[T Element](v T) int64 {
	switch x := any(v).(type) {
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint8:
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	}
	return 0
}

func asBool[T Element](v T) bool {
	switch x := any(v).(type) {
	case bool:
		return x
	default:
		return asInt(v) != 0
	}
}
