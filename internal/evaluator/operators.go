package evaluator

import (
	"fmt"
	"regexp"
	"strings"
)

// matchOperatorMap evaluates an operator-map matcher: all operators
// present must hold for the match to succeed.
func matchOperatorMap(ops map[string]any, value any, present bool) bool {
	for op, target := range ops {
		if !matchOperator(op, target, value, present) {
			return false
		}
	}
	return true
}

func matchOperator(op string, target, value any, present bool) bool {
	if !present {
		return false
	}

	switch op {
	case "gte":
		v, t, ok := numericPair(value, target)
		return ok && v >= t
	case "lte":
		v, t, ok := numericPair(value, target)
		return ok && v <= t
	case "gt":
		v, t, ok := numericPair(value, target)
		return ok && v > t
	case "lt":
		v, t, ok := numericPair(value, target)
		return ok && v < t
	case "contains":
		return strings.Contains(toString(value), toString(target))
	case "regex":
		re, err := regexp.Compile(toString(target))
		if err != nil {
			return false
		}
		return re.MatchString(toString(value))
	default:
		return false
	}
}

func numericPair(value, target any) (float64, float64, bool) {
	v, ok1 := toFloat(value)
	t, ok2 := toFloat(target)
	return v, t, ok1 && ok2
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// equalScalar compares a matched value against a scalar matcher using
// its stringified form, so "443" matches both int(443) and "443".
func equalScalar(value, matcher any) bool {
	return toString(value) == toString(matcher)
}

// inList reports whether value equals any element of a list matcher.
func inList(value any, list []any) bool {
	for _, item := range list {
		if equalScalar(value, item) {
			return true
		}
	}
	return false
}
