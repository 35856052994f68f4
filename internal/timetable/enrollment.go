package timetable

// EnrollmentDiff is the change set that turns a current subject set into a desired one.
type EnrollmentDiff struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// Empty reports whether nothing needs to change.
func (d EnrollmentDiff) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// DiffEnrollment returns desired minus current as Add and current minus
// desired as Remove. Both keep first-seen order and contain no duplicates.
func DiffEnrollment(current, desired []string) EnrollmentDiff {
	cur := toSet(current)
	want := toSet(desired)
	return EnrollmentDiff{
		Add:    minus(desired, cur),
		Remove: minus(current, want),
	}
}

// Apply returns current with the diff applied, deduplicated.
func (d EnrollmentDiff) Apply(current []string) []string {
	removed := toSet(d.Remove)
	seen := make(map[string]struct{}, len(current)+len(d.Add))
	out := make([]string, 0, len(current)+len(d.Add))
	for _, list := range [][]string{current, d.Add} {
		for _, code := range list {
			if _, gone := removed[code]; gone {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func minus(items []string, exclude map[string]struct{}) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, skip := exclude[it]; skip {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
