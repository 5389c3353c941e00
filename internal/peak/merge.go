package peak

// PatchBlacklist lists the policy-owned columns no external patch (AI or
// otherwise) may ever touch. Expense group, note, and GL account are set by
// finalization policy, not by extraction.
var PatchBlacklist = map[string]bool{
	"T_note":    true,
	"U_group":   true,
	"K_account": true,
}

// emptyish reports whether a current value counts as "not yet filled" for the
// fill-missing merge policy. "0" and "0.00" are treated as empty here; that
// conflates a real zero with an absent value, but it matches the established
// import behavior and downstream tooling depends on it.
func emptyish(v string) bool {
	switch v {
	case "", "0", "0.00":
		return true
	}
	return false
}

// Merge applies an unlocked patch map onto the row. Blacklisted keys and
// empty patch values are always skipped. With fillMissing true only
// currently-empty fields are filled; otherwise patch values overwrite.
func (r *Row) Merge(patch map[string]string, fillMissing bool) {
	for k, v := range patch {
		if k == "" || PatchBlacklist[k] {
			continue
		}
		if v == "" {
			continue
		}
		if fillMissing && !emptyish(r.Get(k)) {
			continue
		}
		r.Set(k, v)
	}
}

// SanitizePatch filters an external patch down to contractual columns and
// diagnostic keys, dropping blacklisted and empty entries. Unknown keys from
// an AI collaborator are discarded rather than carried as extras.
func SanitizePatch(patch map[string]string) map[string]string {
	if len(patch) == 0 {
		return nil
	}
	out := make(map[string]string, len(patch))
	for k, v := range patch {
		if k == "" || v == "" || PatchBlacklist[k] {
			continue
		}
		if IsColumn(k) || (len(k) > 0 && k[:1] == DiagPrefix) {
			out[k] = v
		}
	}
	return out
}
