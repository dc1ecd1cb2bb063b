// Package validate holds the stateless field validators shared by the single
// record auditors and the bulk import pipeline. Every function is pure: the
// same input always yields the same result and nothing is looked up remotely.
package validate

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	dErrors "olympreg/pkg/domain-errors"
)

var (
	intRe      = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)
	hexColorRe = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)
	urlTailRe  = regexp.MustCompile(`^(0|[1-9][0-9]*)/$`)
)

// BoundedInt parses a small non-negative integer field. The string must be
// all digits with no sign and no leading zero unless the value is exactly
// "0", and must not exceed max (max < 0 means unbounded).
func BoundedInt(field, s string, max int) (int, error) {
	if !intRe.MatchString(s) {
		return 0, dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s must be a non-negative integer with no leading zero", field)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeFormatInvalid, "%s out of range", field)
	}
	if max >= 0 && n > max {
		return 0, dErrors.Newf(dErrors.CodeFormatInvalid, "%s out of range", field)
	}
	return n, nil
}

// Email checks one address for syntactic validity. No network lookup is done.
func Email(field, s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s is not a valid email address", field)
	}
	return nil
}

// EmailList splits a field holding multiple addresses on commas and newlines,
// trims each entry, discards empties, and validates the rest independently.
func EmailList(field, s string) ([]string, error) {
	split := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	var out []string
	for _, entry := range split {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if err := Email(field, entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// HexColor requires exactly six hex digits.
func HexColor(field, s string) error {
	if !hexColorRe.MatchString(s) {
		return dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s must be six hexadecimal digits", field)
	}
	return nil
}

// GenericURL checks a prior-participation URL of the form <base><kind>N/
// where N is a single run of digits with no leading zero. When a roster of
// known numbers is configured the number must also appear in it.
func GenericURL(base, kind, s string, roster map[int]bool) (int, error) {
	prefix := base + kind
	shapeErr := dErrors.Newf(dErrors.CodeFormatInvalid,
		"example URL for previous participation must be in the form %sN/", prefix)
	if !strings.HasPrefix(s, prefix) {
		return 0, shapeErr
	}
	tail := s[len(prefix):]
	if !urlTailRe.MatchString(tail) {
		return 0, shapeErr
	}
	n, err := strconv.Atoi(strings.TrimSuffix(tail, "/"))
	if err != nil {
		return 0, shapeErr
	}
	if roster != nil && !roster[n] {
		return 0, dErrors.New(dErrors.CodeFormatInvalid,
			"example URL for previous participation not valid")
	}
	return n, nil
}

// Score parses a score-cell value: empty means unset, otherwise an integer
// in [0, max] under the same shape rules as BoundedInt.
func Score(s string, max int) (int, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	n, err := BoundedInt("score", s, max)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
