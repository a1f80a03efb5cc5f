package lockfile

// Diff describes the differences between two lock documents. Because a lock
// document is only ever regenerated by re-running resolution, a diff against
// the previous document is the unit of review for an update.
type Diff struct {
	// Added lists packages present only in the new document.
	Added []Entry

	// Removed lists packages present only in the old document.
	Removed []Entry

	// Changed lists packages whose version or artifact set differs.
	Changed []EntryChange
}

// EntryChange pairs the old and new entry for a changed package.
type EntryChange struct {
	Old Entry
	New Entry
}

// IsEmpty reports whether the two documents lock the same set.
func (d *Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare diffs two lock documents by normalized package name.
func Compare(oldDoc, newDoc *Document) *Diff {
	diff := &Diff{}

	oldByName := make(map[string]Entry, len(oldDoc.Packages))
	for _, e := range oldDoc.Packages {
		oldByName[e.NormalizedName()] = e
	}

	for _, newEntry := range newDoc.Packages {
		oldEntry, existed := oldByName[newEntry.NormalizedName()]
		if !existed {
			diff.Added = append(diff.Added, newEntry)
			continue
		}
		delete(oldByName, newEntry.NormalizedName())
		if !entriesEqual(oldEntry, newEntry) {
			diff.Changed = append(diff.Changed, EntryChange{Old: oldEntry, New: newEntry})
		}
	}

	for _, e := range oldDoc.Packages {
		if _, stillThere := oldByName[e.NormalizedName()]; stillThere {
			diff.Removed = append(diff.Removed, e)
		}
	}

	return diff
}

func entriesEqual(a, b Entry) bool {
	if a.Version != b.Version {
		return false
	}
	if len(a.Extras) != len(b.Extras) || len(a.Artifacts) != len(b.Artifacts) {
		return false
	}
	for i := range a.Extras {
		if a.Extras[i] != b.Extras[i] {
			return false
		}
	}
	for i := range a.Artifacts {
		if a.Artifacts[i] != b.Artifacts[i] {
			return false
		}
	}
	return true
}
