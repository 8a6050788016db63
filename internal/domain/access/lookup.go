package access

// LookupResult is the outcome of one per-project membership lookup.
// Err is kept so callers can log it; Fold treats it as no match.
type LookupResult struct {
	ProjectID string
	Manager   bool
	Err       error
}

// Fold collects the project ids where the lookup succeeded and matched,
// preserving input order. Failed lookups contribute nothing.
func Fold(results []LookupResult) []string {
	var ids []string
	for _, r := range results {
		if r.Err != nil || !r.Manager {
			continue
		}
		ids = append(ids, r.ProjectID)
	}
	return ids
}

// Failed returns the results that carried an error.
func Failed(results []LookupResult) []LookupResult {
	var out []LookupResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
