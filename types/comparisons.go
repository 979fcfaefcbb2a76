package types

import (
	"fmt"
	"time"
)

// CompareSupportedTypes handles comparison for supported types.
//
// Integer-shaped fields (Integer, Short, Long) widen to int64 before
// comparing rather than narrowing to int: a Long key compared against an
// Integer key must not lose precision by truncating through a 32-bit int,
// since both the B-tree and hash index route every key comparison through
// this function regardless of which integer width the schema declared.
func CompareSupportedTypes(lhs, rhs any, op Operator) bool {
	// Handle nil values explicitly
	if lhs == nil || rhs == nil {
		return false // Null comparisons always return false in SQL semantics
	}

	if lhsInt, lhsIsInt := toInt64(lhs); lhsIsInt {
		if rhsInt, rhsIsInt := toInt64(rhs); rhsIsInt {
			return compareInt64s(lhsInt, rhsInt, op)
		}
	}

	// If not both integer-shaped, switch on types for the other supported comparisons:
	switch lhs := lhs.(type) {
	case string:
		if rhs, ok := rhs.(string); ok {
			return compareStrings(lhs, rhs, op)
		}
	case bool:
		if rhs, ok := rhs.(bool); ok {
			return compareBools(lhs, rhs, op)
		}
	case time.Time:
		if rhs, ok := rhs.(time.Time); ok {
			return compareTimes(lhs, rhs, op)
		}
	// You can still directly handle type == type comparisons if needed
	// (e.g., if you had float64 or others).
	default:
		// Log unsupported type for debugging
		fmt.Printf("Unsupported or mismatched types for comparison: lhs=%T, rhs=%T\n", lhs, rhs)
	}

	// Return false for unsupported or mismatched types
	return false
}

// toInt64 widens any of the engine's integer-shaped field types (int,
// int16, int64) to int64 without loss. Returns (0, false) for anything else.
func toInt64(i any) (int64, bool) {
	switch v := i.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int16:
		return int64(v), true
	default:
		return 0, false
	}
}

// compareInt64s compares two int64 values.
func compareInt64s(lhs, rhs int64, op Operator) bool {
	switch op {
	case NE:
		return lhs != rhs
	case EQ:
		return lhs == rhs
	case LT:
		return lhs < rhs
	case LE:
		return lhs <= rhs
	case GT:
		return lhs > rhs
	case GE:
		return lhs >= rhs
	default:
		fmt.Printf("unsupported operator: %v\n", op)
		return false
	}
}

// compareStrings compares two strings.
func compareStrings(lhs, rhs string, op Operator) bool {
	switch op {
	case NE:
		return lhs != rhs
	case EQ:
		return lhs == rhs
	case LT:
		return lhs < rhs
	case LE:
		return lhs <= rhs
	case GT:
		return lhs > rhs
	case GE:
		return lhs >= rhs
	default:
		fmt.Printf("unsupported operator: %v\n", op)
		return false
	}
}

// compareBools compares two booleans (only equality comparisons make sense).
func compareBools(lhs, rhs bool, op Operator) bool {
	switch op {
	case EQ:
		return lhs == rhs
	case NE:
		return lhs != rhs
	default:
		fmt.Printf("unsupported operator: %v\n", op)
		return false // Invalid for comparison operators like <, >
	}
}

// compareTimes compares two time.Time values.
func compareTimes(lhs, rhs time.Time, op Operator) bool {
	switch op {
	case NE:
		return !lhs.Equal(rhs)
	case EQ:
		return lhs.Equal(rhs)
	case LT:
		return lhs.Before(rhs)
	case LE:
		return lhs.Before(rhs) || lhs.Equal(rhs)
	case GT:
		return lhs.After(rhs)
	case GE:
		return lhs.After(rhs) || lhs.Equal(rhs)
	default:
		fmt.Printf("unsupported operator: %v\n", op)
		return false
	}
}
