package native

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ConvertBytes re-encodes element data between dtypes. Values pass through
// float64 as the intermediate, which is lossless for every supported type
// except int64 values beyond 2^53. Backends use this for host-side dtype
// migration.
func ConvertBytes(data []byte, from, to DataType) ([]byte, error) {
	if from == to {
		return data, nil
	}
	n := len(data) / from.Size()
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := loadElem(data, i, from)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	out := make([]byte, n*to.Size())
	for i, v := range vals {
		if err := storeElem(out, i, to, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func loadElem(data []byte, i int, dt DataType) (float64, error) {
	switch dt {
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))), nil
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:])), nil
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(data[i*4:]))), nil
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(data[i*8:]))), nil
	case Uint8:
		return float64(data[i]), nil
	case Bool:
		if data[i] != 0 {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported source dtype %s", dt)
	}
}

func storeElem(data []byte, i int, dt DataType, v float64) error {
	switch dt {
	case Float32:
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	case Int32:
		binary.LittleEndian.PutUint32(data[i*4:], uint32(int32(v)))
	case Int64:
		binary.LittleEndian.PutUint64(data[i*8:], uint64(int64(v)))
	case Uint8:
		data[i] = uint8(v)
	case Bool:
		if v != 0 {
			data[i] = 1
		} else {
			data[i] = 0
		}
	default:
		return fmt.Errorf("unsupported target dtype %s", dt)
	}
	return nil
}
