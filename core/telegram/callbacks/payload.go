package callbacks

import (
	"strconv"
	"strings"
)

// Fields splits payload into exactly n parts separated by sep.
func Fields(payload, sep string, n int) ([]string, error) {
	if payload == "" {
		return nil, strconv.ErrSyntax
	}
	parts := strings.SplitN(payload, sep, n)
	if len(parts) != n {
		return nil, strconv.ErrSyntax
	}
	return parts, nil
}

// Int parses a payload field as a non-negative int.
func Int(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// Int64 parses a payload field as int64.
func Int64(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// TwoInts parses payload like "3:1" into two non-negative ints.
func TwoInts(payload, sep string) (int, int, error) {
	parts, err := Fields(payload, sep, 2)
	if err != nil {
		return 0, 0, err
	}
	a, err := Int(parts[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := Int(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
