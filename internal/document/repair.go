package document

// Repair restores the identifier invariants of a document received from outside, e.g. a client
// replacing the whole document: Seq is raised past every identifier in use, and items without an
// identifier or sharing one with an earlier item get fresh ones. Skill levels are clamped.
// It reports whether anything changed.
func (d *Document) Repair() bool {
	var maxID int64
	visit := func(e *Entry) {
		maxID = max(maxID, e.ID)
	}
	d.walk(visit)

	changed := false
	if d.Seq < maxID {
		d.Seq = maxID
		changed = true
	}

	seen := make(map[int64]struct{})
	d.walk(func(e *Entry) {
		if _, dup := seen[e.ID]; e.ID <= 0 || dup {
			e.ID = d.nextID()
			changed = true
		}
		seen[e.ID] = struct{}{}
	})

	for i := range d.Skills {
		if lv := clampLevel(d.Skills[i].Level); lv != d.Skills[i].Level {
			d.Skills[i].Level = lv
			changed = true
		}
	}
	return changed
}

func (d *Document) walk(fn func(*Entry)) {
	for i := range d.PersonalInfo.CustomFields {
		fn(&d.PersonalInfo.CustomFields[i].Entry)
	}
	for i := range d.Experience {
		fn(&d.Experience[i].Entry)
	}
	for i := range d.Education {
		fn(&d.Education[i].Entry)
	}
	for i := range d.Skills {
		fn(&d.Skills[i].Entry)
	}
	for i := range d.Interests {
		fn(&d.Interests[i].Entry)
	}
	for i := range d.Languages {
		fn(&d.Languages[i].Entry)
	}
	for i := range d.CustomSections {
		cs := &d.CustomSections[i]
		fn(&cs.Entry)
		for j := range cs.Items {
			fn(&cs.Items[j].Entry)
		}
	}
}
