package planner

// EventKind names a planner state change.
type EventKind string

const (
	ActivityAdded   EventKind = "activity.added"
	ActivityChanged EventKind = "activity.changed"
	ActivityDeleted EventKind = "activity.deleted"
	BlockPlaced     EventKind = "block.placed"
	BlockChanged    EventKind = "block.changed"
	BlockDeleted    EventKind = "block.deleted"
	SettingsChanged EventKind = "settings.changed"
	Loaded          EventKind = "loaded"
)

// Event is delivered to subscribers after a change has been applied.
type Event struct {
	Kind       EventKind
	ActivityID string
	BlockID    string
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it.
func (p *Planner) Subscribe(fn func(Event)) (unsubscribe func()) {
	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subMu.Unlock()

	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

func (p *Planner) emit(ev Event) {
	p.subMu.Lock()
	fns := make([]func(Event), 0, len(p.subs))
	// registration order
	for i := 0; i < p.nextID; i++ {
		if fn, ok := p.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	p.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
