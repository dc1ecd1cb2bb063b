// Package auditutil holds the shared field-merging helpers for the country
// and person auditors. Proposed values are pointer-typed: nil means the field
// was not supplied, the empty string means the caller explicitly emptied it.
// The two cases fail differently for required fields, and an explicit empty
// on an edit restores the stored value instead of erasing it.
package auditutil

import (
	dErrors "olympreg/pkg/domain-errors"
)

// Get returns the effective new value of a field: the proposed value when
// supplied, otherwise the continuing stored value.
func Get(proposed *string, prev string) string {
	if proposed != nil {
		return *proposed
	}
	return prev
}

// GetBool is Get for boolean fields.
func GetBool(proposed *bool, prev bool) bool {
	if proposed != nil {
		return *proposed
	}
	return prev
}

// Require enforces a mandatory field. friendly is the acknowledged-omission
// message ("No country code specified"); an unacknowledged omission reports
// the field name instead. create marks a create rather than an edit.
func Require(field, friendly string, proposed *string, prev string, create bool) (string, error) {
	if proposed == nil {
		if !create && prev != "" {
			return prev, nil
		}
		return "", dErrors.Newf(dErrors.CodeRequiredMissing,
			"required field %s not supplied", field)
	}
	if *proposed != "" {
		return *proposed, nil
	}
	// Explicitly emptied: restore the stored value on an edit.
	if !create && prev != "" {
		return prev, nil
	}
	return "", dErrors.New(dErrors.CodeRequiredMissing, friendly)
}
