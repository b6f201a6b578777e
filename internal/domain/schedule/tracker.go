package schedule

// Tracker stages the remote side effects of a working session: events to upsert and
// IDs to delete. It diffs against the baseline from the last fetch so that an edit which
// returns an event to its fetched state is unstaged instead of producing a no-op upsert.
// INVARIANT: an ID is never both changed and deleted.
// INVARIANT: deleted only holds IDs present in the baseline.
type Tracker struct {
	baseline map[string]Event
	changed  map[string]Event
	order    []string // changed IDs in first-staged order
	deleted  []string
}

// NewTracker creates a tracker whose baseline is the given fetched events.
func NewTracker(baseline []Event) *Tracker {
	t := &Tracker{}
	t.Reset(baseline)
	return t
}

// MarkDirty stages the latest state of e, replacing any earlier staged state for its ID.
// PRE: e.ID is non-empty
// POST: e is staged, or unstaged if it matches the baseline
func (t *Tracker) MarkDirty(e Event) {
	if base, ok := t.baseline[e.ID]; ok && base.SameContent(e) {
		t.unstage(e.ID)
		return
	}
	if _, ok := t.changed[e.ID]; !ok {
		t.order = append(t.order, e.ID)
	}
	t.changed[e.ID] = e
}

// MarkDeleted stages the removal of id and drops any pending edit for it.
// Events that were never fetched are simply forgotten.
// POST: id is not in Changed(); id is in Deleted() iff it was in the baseline
func (t *Tracker) MarkDeleted(id string) {
	t.unstage(id)
	if _, ok := t.baseline[id]; !ok {
		return
	}
	for _, d := range t.deleted {
		if d == id {
			return
		}
	}
	t.deleted = append(t.deleted, id)
}

// Reset clears all staged state and installs a new baseline.
// Called after a commit attempt once the authoritative week has been re-fetched.
func (t *Tracker) Reset(baseline []Event) {
	t.baseline = make(map[string]Event, len(baseline))
	for _, e := range baseline {
		t.baseline[e.ID] = e
	}
	t.changed = make(map[string]Event)
	t.order = nil
	t.deleted = nil
}

// IsDirty reports whether anything is staged.
func (t *Tracker) IsDirty() bool {
	return len(t.changed) > 0 || len(t.deleted) > 0
}

// Changed returns the staged events in the order they were first staged.
func (t *Tracker) Changed() []Event {
	out := make([]Event, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.changed[id])
	}
	return out
}

// Deleted returns the staged deletion IDs.
func (t *Tracker) Deleted() []string {
	out := make([]string, len(t.deleted))
	copy(out, t.deleted)
	return out
}

// IsStaged reports whether id has a pending upsert.
func (t *Tracker) IsStaged(id string) bool {
	_, ok := t.changed[id]
	return ok
}

func (t *Tracker) unstage(id string) {
	if _, ok := t.changed[id]; !ok {
		return
	}
	delete(t.changed, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}
