package yachtsql

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// HashKey is the type-tagged digest used by HashJoin, HashAggregate, and
// DISTINCT to bucket Values that must compare equal under Equal (spec §4.F:
// "type-tagged hashing ... float bit pattern, Decimal canonical string,
// array/struct element-wise fold, interval 3-tuple").
type HashKey uint64

// hashKindTag prefixes every hash payload with the value's kind group so
// that, e.g., Int64(1) and String("1") - which compare unequal under Equal -
// never collide by accident of payload encoding. The numeric kinds share one
// tag because Equal treats them as one family (Int64(1) equals Float64(1.0)).
func hashKindTag(k ValueKind) byte {
	switch k {
	case VKNull, VKDefault:
		return 0
	case VKBool:
		return 1
	case VKInt64, VKFloat64, VKNumeric, VKBigNumeric:
		return 2 // numeric family shares a tag: 1 == 1.0 == NUMERIC '1' must hash together
	case VKString:
		return 3
	case VKBytes:
		return 4
	case VKDate:
		return 5
	case VKTime:
		return 6
	case VKDateTime:
		return 7
	case VKTimestamp:
		return 8
	case VKInterval:
		return 9
	case VKArray:
		return 10
	case VKStruct:
		return 11
	case VKRange:
		return 12
	case VKJSON:
		return 13
	case VKGeography:
		return 14
	default:
		return 255
	}
}

// Hash computes v's HashKey. Values for which Equal(a, b) holds always
// produce the same HashKey; the converse need not hold (hash collisions are
// permitted and resolved by callers re-checking Equal).
func Hash(v Value) HashKey {
	h := xxh3.New()
	h.Write([]byte{hashKindTag(v.kind)})
	if v.IsNull() || v.IsDefault() {
		return HashKey(h.Sum64())
	}
	switch v.kind {
	case VKBool:
		if v.b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case VKInt64, VKFloat64, VKNumeric, VKBigNumeric:
		// canonical decimal text: "1", "1.0", and NUMERIC('1') all fold to
		// the same payload, matching spec §4.F numeric-family hashing.
		h.Write([]byte(asDecimal(v).CanonicalString()))
	case VKString, VKBytes, VKJSON, VKGeography:
		h.Write([]byte(v.s))
	case VKDate:
		h.Write([]byte(v.t.Format("2006-01-02")))
	case VKTime:
		h.Write([]byte(v.t.Format("15:04:05.999999999")))
	case VKDateTime:
		h.Write([]byte(v.t.Format("2006-01-02T15:04:05.999999999")))
	case VKTimestamp:
		h.Write([]byte(strconv.FormatInt(v.t.UnixNano(), 10)))
	case VKInterval:
		h.Write([]byte(strconv.FormatInt(int64(v.iv.Months), 10)))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(int64(v.iv.Days), 10)))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(v.iv.Nanos, 10)))
	case VKArray:
		for _, e := range v.arr {
			eh := Hash(e)
			h.Write([]byte(strconv.FormatUint(uint64(eh), 10)))
			h.Write([]byte{0})
		}
	case VKStruct:
		for i, n := range v.strct.Names {
			h.Write([]byte(n))
			h.Write([]byte{0})
			eh := Hash(v.strct.Values[i])
			h.Write([]byte(strconv.FormatUint(uint64(eh), 10)))
			h.Write([]byte{0})
		}
	case VKRange:
		if v.rng.Start != nil {
			h.Write([]byte(strconv.FormatUint(uint64(Hash(*v.rng.Start)), 10)))
		}
		h.Write([]byte{0})
		if v.rng.End != nil {
			h.Write([]byte(strconv.FormatUint(uint64(Hash(*v.rng.End)), 10)))
		}
	}
	return HashKey(h.Sum64())
}

// HashRow combines the HashKeys of a row's key columns into a single
// composite HashKey, used by HashJoin/HashAggregate's bucket index.
func HashRow(values []Value) HashKey {
	h := xxh3.New()
	for _, v := range values {
		k := Hash(v)
		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(k >> (8 * i))
		}
		h.Write(buf[:])
	}
	return HashKey(h.Sum64())
}
