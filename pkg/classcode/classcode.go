// Package classcode canonicalises THPT class identifiers such as "10 a 1"
// into the form {grade}{letter}{number}, e.g. "10A1".
package classcode

import (
	"regexp"
	"strconv"
	"strings"

	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

// Class numbers are 1-2 digits without a leading zero, so "10A01" is
// rejected rather than silently collapsing into "10A1".
var pattern = regexp.MustCompile(`^(10|11|12)([A-Z])([1-9]\d?)$`)

// Normalize strips whitespace, uppercases and validates a class identifier.
// Valid codes have a grade of 10, 11 or 12, a single letter and a 1-2 digit
// class number. Anything else yields ErrInvalidClassCode.
func Normalize(s string) (string, error) {
	code := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if !pattern.MatchString(code) {
		return "", appErrors.Clone(appErrors.ErrInvalidClassCode, "invalid class code: "+s)
	}
	return code, nil
}

// Grade returns the grade encoded in a canonical class code, or 0 when the
// code does not parse.
func Grade(code string) int {
	m := pattern.FindStringSubmatch(code)
	if m == nil {
		return 0
	}
	grade, _ := strconv.Atoi(m[1])
	return grade
}

// Compare orders canonical class codes numerically: grade first, then the
// class letter, then the class number ("10A2" sorts before "10A10").
// Non-canonical codes fall back to plain string comparison.
func Compare(a, b string) int {
	ma := pattern.FindStringSubmatch(a)
	mb := pattern.FindStringSubmatch(b)
	if ma == nil || mb == nil {
		return strings.Compare(a, b)
	}
	if ma[1] != mb[1] {
		return strings.Compare(ma[1], mb[1])
	}
	if ma[2] != mb[2] {
		return strings.Compare(ma[2], mb[2])
	}
	na, _ := strconv.Atoi(ma[3])
	nb, _ := strconv.Atoi(mb[3])
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	default:
		return 0
	}
}
