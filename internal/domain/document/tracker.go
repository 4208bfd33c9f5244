package document

// Tracker turns raw document writes into filtered membership changes. Backends
// that only observe "document X was written" use it to report documents
// entering, changing within, and leaving a subscription's result set.
type Tracker struct {
	filters []Filter
	members map[string]struct{}
}

// NewTracker seeds the tracker with the documents currently matching.
func NewTracker(filters []Filter, initial []Document) *Tracker {
	t := &Tracker{filters: filters, members: make(map[string]struct{}, len(initial))}
	for _, d := range initial {
		if MatchAll(filters, d.Data) {
			t.members[d.ID] = struct{}{}
		}
	}
	return t
}

// Observe classifies a write. A nil doc means the document was deleted.
func (t *Tracker) Observe(id string, doc *Document) (Change, bool) {
	_, known := t.members[id]
	matches := doc != nil && MatchAll(t.filters, doc.Data)

	switch {
	case matches && known:
		return Change{Kind: ChangeModified, Document: *doc}, true
	case matches:
		t.members[id] = struct{}{}
		return Change{Kind: ChangeAdded, Document: *doc}, true
	case known:
		delete(t.members, id)
		removed := Document{ID: id}
		if doc != nil {
			removed = *doc
		}
		return Change{Kind: ChangeRemoved, Document: removed}, true
	}
	return Change{}, false
}

// Len returns the number of tracked members.
func (t *Tracker) Len() int {
	return len(t.members)
}
