package snapshot

// Changes is a file-level comparison of two snapshots.
type Changes struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Modified) == 0
}

// Diff compares two manifests. A nil prev means everything in cur was added.
// Each list is sorted by path.
func Diff(prev *Snapshot, cur Snapshot) Changes {
	ch := Changes{Added: []string{}, Removed: []string{}, Modified: []string{}}

	var before []File
	if prev != nil {
		before = prev.Files
	}
	after := cur.Files

	// Both manifests are sorted by path; walk them together.
	i, j := 0, 0
	for i < len(before) || j < len(after) {
		switch {
		case j == len(after) || (i < len(before) && before[i].Path < after[j].Path):
			ch.Removed = append(ch.Removed, before[i].Path)
			i++
		case i == len(before) || after[j].Path < before[i].Path:
			ch.Added = append(ch.Added, after[j].Path)
			j++
		default:
			if before[i].Digest != after[j].Digest || before[i].Size != after[j].Size {
				ch.Modified = append(ch.Modified, after[j].Path)
			}
			i++
			j++
		}
	}
	return ch
}
