package utils

import (
	"errors"
	"fmt"
	"hash/maphash"
	"time"
)

var hashSeed = maphash.MakeSeed()

// HashValue computes a stable hash for the comparable field types the engine
// indexes (the fixed-width integer types, strings, booleans, and dates).
// It is used by the static-hash index to pick a bucket for a search key.
func HashValue(input interface{}) (uint32, error) {
	var h maphash.Hash
	h.SetSeed(hashSeed)

	switch v := input.(type) {
	case int16:
		writeUint64(&h, uint64(v))
	case int:
		writeUint64(&h, uint64(v))
	case int64:
		writeUint64(&h, uint64(v))
	case string:
		h.WriteString(v)
	case bool:
		if v {
			h.WriteByte(1)
		} else {
			h.WriteByte(0)
		}
	case time.Time:
		writeUint64(&h, uint64(v.Unix()))
	case nil:
		return 0, errors.New("cannot hash a nil value")
	default:
		return 0, fmt.Errorf("unsupported type for hashing: %T", input)
	}

	return uint32(h.Sum64()), nil
}

func writeUint64(h *maphash.Hash, n uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(n >> (8 * i))
	}
	h.Write(buf[:])
}
