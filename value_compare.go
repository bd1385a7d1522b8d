package yachtsql

import "time"

// sortRank orders NULL before every other kind and otherwise orders by
// value kind grouping (numeric family together, temporal family together),
// matching spec §8's "NULLs sort first" invariant and the engine's single
// total order used by ORDER BY, window frames, and GROUP BY key comparison.
func sortRank(v Value) int {
	if v.IsNull() {
		return 0
	}
	switch v.kind {
	case VKBool:
		return 1
	case VKInt64, VKFloat64, VKNumeric, VKBigNumeric:
		return 2
	case VKString:
		return 3
	case VKBytes:
		return 4
	case VKDate, VKTime, VKDateTime, VKTimestamp:
		return 5
	case VKInterval:
		return 6
	case VKArray:
		return 7
	case VKStruct:
		return 8
	case VKRange:
		return 9
	case VKJSON:
		return 10
	case VKGeography:
		return 11
	default:
		return 12
	}
}

// Compare implements the engine's single total order over Values (spec §8:
// "a single consistent total order usable by ORDER BY, window frames, and
// GROUP BY key comparison"). NULL sorts first (ascending); direction and
// NULLS FIRST/LAST overrides are the caller's (ORDER BY executor's)
// responsibility. Values of different kind groups (e.g. STRUCT vs ARRAY)
// order by their sortRank group; Compare never returns an error or panics.
func Compare(a, b Value) int {
	ra, rb := sortRank(a), sortRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if a.IsNull() {
		return 0
	}
	switch a.kind {
	case VKBool:
		return compareBool(a.b, b.b)
	case VKInt64, VKFloat64, VKNumeric, VKBigNumeric:
		return compareNumericValues(a, b)
	case VKString:
		return compareString(a.s, b.s)
	case VKBytes:
		return compareString(a.s, b.s)
	case VKDate, VKTime, VKDateTime, VKTimestamp:
		return compareTime(a.t, b.t)
	case VKInterval:
		return compareInterval(a.iv, b.iv)
	case VKArray:
		return compareArray(a.arr, b.arr)
	case VKStruct:
		return compareStruct(a.strct, b.strct)
	case VKRange:
		return compareRange(a.rng, b.rng)
	case VKJSON, VKGeography:
		return compareString(a.s, b.s)
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

// compareNumericValues compares across the numeric family without allocating
// when both sides share a representation; mixed representations fall back
// to Decimal comparison, which is exact for the INT64/NUMERIC/BIGNUMERIC
// mix and adequate for sort ordering against FLOAT64.
func compareNumericValues(a, b Value) int {
	if a.kind == VKFloat64 || b.kind == VKFloat64 {
		fa, fb := asFloat64(a), asFloat64(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	if a.kind == VKInt64 && b.kind == VKInt64 {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	}
	return asDecimal(a).Cmp(asDecimal(b))
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareInterval(a, b Interval) int {
	if a.Months != b.Months {
		return compareInt32(a.Months, b.Months)
	}
	if a.Days != b.Days {
		return compareInt32(a.Days, b.Days)
	}
	if a.Nanos != b.Nanos {
		return compareInt64(a.Nanos, b.Nanos)
	}
	return 0
}

func compareInt32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareArray(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt64(int64(len(a)), int64(len(b)))
}

func compareStruct(a, b *StructValue) int {
	for i := 0; i < len(a.Values) && i < len(b.Values); i++ {
		if c := Compare(a.Values[i], b.Values[i]); c != 0 {
			return c
		}
	}
	return compareInt64(int64(len(a.Values)), int64(len(b.Values)))
}

func compareRange(a, b *RangeBounds) int {
	if c := compareRangeBound(a.Start, b.Start, -1); c != 0 {
		return c
	}
	return compareRangeBound(a.End, b.End, 1)
}

// compareRangeBound treats a nil bound as UNBOUNDED, which sorts before
// every concrete lower bound and after every concrete upper bound;
// unboundedRank selects which (-1 for Start, +1 for End).
func compareRangeBound(a, b *Value, unboundedRank int) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return unboundedRank
	}
	if b == nil {
		return -unboundedRank
	}
	return Compare(*a, *b)
}

// Equal reports whether a and b are equal under GROUP BY / DISTINCT / join
// key semantics, where two NULLs are considered equal to each other (unlike
// SQL's three-valued `=` operator, which EqualSQL below implements).
func Equal(a, b Value) bool {
	return Compare(a, b) == 0 && sortRank(a) == sortRank(b)
}

// EqualSQL implements the `=` operator's three-valued logic: NULL compared
// to anything (including NULL) yields SQL NULL, represented here as
// (false, false) for (result, valid).
func EqualSQL(a, b Value) (result bool, valid bool) {
	if a.IsNull() || b.IsNull() {
		return false, false
	}
	return Compare(a, b) == 0, true
}
