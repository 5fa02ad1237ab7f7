package goofish

// FilterNew drops candidates whose composite key is already in seen and
// keeps the rest, inserting each kept key immediately so duplicates within
// the same batch also collapse to one. seen is mutated in place; callers
// rely on it growing monotonically across the process lifetime.
func FilterNew(candidates []ProductRecord, seen map[string]struct{}) []ProductRecord {
	var kept []ProductRecord
	for _, candidate := range candidates {
		key := candidate.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, candidate)
	}
	return kept
}
