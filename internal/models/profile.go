package models

import "strings"

// BillingFields are the contact fields required before an order can be
// initiated.
var BillingFields = []string{"name", "email", "phone"}

// Profile is the accumulated, session-scoped knowledge about the user.
// Keys are attribute names (contact fields, travel preferences), values are
// free text.
type Profile map[string]string

// Merge returns a new profile with update applied additively. A known
// non-empty value is never overwritten by an empty one; non-empty update
// values win. The receiver is not mutated.
func (p Profile) Merge(update Profile) Profile {
	merged := make(Profile, len(p)+len(update))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range update {
		if strings.TrimSpace(v) == "" {
			continue
		}
		merged[k] = v
	}
	return merged
}

// MissingBillingFields lists billing fields not yet known for this profile.
func (p Profile) MissingBillingFields() []string {
	var missing []string
	for _, f := range BillingFields {
		if strings.TrimSpace(p[f]) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Clone returns an independent copy of the profile.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
