// Package planner holds the editable schedule: reusable activities, the
// blocks placed from them on a day/slot grid, and the grid settings. It
// builds the model.ScheduleData consumed by the poster renderer.
//
// A Planner is safe for concurrent use. Subscribers are called
// synchronously after each state change, outside the planner lock.
package planner

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	appLog "weekposter/internal/log"
	"weekposter/internal/model"
	"weekposter/internal/store"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrOutOfRange = errors.New("out of range")
)

// Block is an activity instance on the grid. Slots are 0-based, EndSlot
// exclusive.
type Block struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	DayIndex   int    `json:"dayIndex"`
	StartSlot  int    `json:"startSlot"`
	EndSlot    int    `json:"endSlot"`
	Subtitle   string `json:"subtitle,omitempty"`
}

type Planner struct {
	mu         sync.Mutex
	settings   Settings
	activities []model.Activity
	blocks     []Block

	lookup Lookup
	kv     store.KV
	newID  func() string

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// New returns a planner with default settings. kv may be nil, in which case
// Load and Save are no-ops; lookup defaults to DefaultLookup.
func New(kv store.KV, lookup Lookup) *Planner {
	if lookup == nil {
		lookup = DefaultLookup
	}
	return &Planner{
		settings: DefaultSettings(),
		lookup:   lookup,
		kv:       kv,
		newID:    uuid.NewString,
		subs:     make(map[int]func(Event)),
	}
}

// grid returns the current slots and day count. Callers hold p.mu.
func (p *Planner) grid() ([]Slot, int) {
	slots, _ := Slots(p.settings)
	days, _ := DaysRange(p.settings.StartDay, p.settings.EndDay)
	return slots, len(days)
}

func (p *Planner) activity(id string) (int, bool) {
	for i, a := range p.activities {
		if a.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (p *Planner) block(id string) (int, bool) {
	for i, b := range p.blocks {
		if b.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Settings returns the current grid settings.
func (p *Planner) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// SetSettings replaces the grid settings. Blocks on days that no longer
// exist or starting below the last slot are removed; the rest are clamped.
func (p *Planner) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.StartDay = strings.ToLower(s.StartDay)
	s.EndDay = strings.ToLower(s.EndDay)

	p.mu.Lock()
	p.settings = s
	slots, days := p.grid()
	kept := p.blocks[:0]
	for _, b := range p.blocks {
		if b.DayIndex >= days || b.StartSlot >= len(slots) {
			continue
		}
		b.EndSlot = clampInt(b.EndSlot, b.StartSlot+1, len(slots))
		kept = append(kept, b)
	}
	p.blocks = kept
	p.mu.Unlock()

	p.emit(Event{Kind: SettingsChanged})
	return nil
}

// Days returns the display names of the active days.
func (p *Planner) Days() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dayNames()
}

func (p *Planner) dayNames() []string {
	idx, _ := DaysRange(p.settings.StartDay, p.settings.EndDay)
	out := make([]string, len(idx))
	for i, d := range idx {
		out[i] = p.lookup(WeekdayKeys[d])
	}
	return out
}

// Activities returns a copy of the activity list.
func (p *Planner) Activities() []model.Activity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Activity(nil), p.activities...)
}

// Blocks returns a copy of the placed blocks.
func (p *Planner) Blocks() []Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Block(nil), p.blocks...)
}

// AddActivity creates a new activity template.
func (p *Planner) AddActivity(name, color string) (model.Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Activity{}, model.Invalid("name", "must not be empty")
	}
	a := model.Activity{ID: p.newID(), Name: name, Color: color}

	p.mu.Lock()
	p.activities = append(p.activities, a)
	p.mu.Unlock()

	p.emit(Event{Kind: ActivityAdded, ActivityID: a.ID})
	return a, nil
}

// RenameActivity changes an activity name; placed blocks follow it.
func (p *Planner) RenameActivity(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Invalid("name", "must not be empty")
	}
	p.mu.Lock()
	i, ok := p.activity(id)
	if ok {
		p.activities[i].Name = name
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	p.emit(Event{Kind: ActivityChanged, ActivityID: id})
	return nil
}

// RecolorActivity changes an activity color.
func (p *Planner) RecolorActivity(id, color string) error {
	p.mu.Lock()
	i, ok := p.activity(id)
	if ok {
		p.activities[i].Color = color
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	p.emit(Event{Kind: ActivityChanged, ActivityID: id})
	return nil
}

// DeleteActivity removes an activity and every block placed from it,
// returning the number of blocks removed.
func (p *Planner) DeleteActivity(id string) (int, error) {
	p.mu.Lock()
	i, ok := p.activity(id)
	if !ok {
		p.mu.Unlock()
		return 0, fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	p.activities = append(p.activities[:i], p.activities[i+1:]...)
	kept := p.blocks[:0]
	removed := 0
	for _, b := range p.blocks {
		if b.ActivityID == id {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	p.blocks = kept
	p.mu.Unlock()

	p.emit(Event{Kind: ActivityDeleted, ActivityID: id})
	return removed, nil
}

// DefaultDurationSlots is how many slots a freshly placed block spans:
// about an hour, at least two.
func DefaultDurationSlots(stepMin int) int {
	return max(2, int(math.Round(60/float64(stepMin))))
}

// Place stamps an activity onto day at slot with the default duration,
// clamped to the end of the grid.
func (p *Planner) Place(activityID string, day, slot int) (Block, error) {
	p.mu.Lock()
	if _, ok := p.activity(activityID); !ok {
		p.mu.Unlock()
		return Block{}, fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
	}
	slots, days := p.grid()
	if day < 0 || day >= days || slot < 0 || slot >= len(slots) {
		p.mu.Unlock()
		return Block{}, fmt.Errorf("day %d slot %d: %w", day, slot, ErrOutOfRange)
	}
	b := Block{
		ID:         p.newID(),
		ActivityID: activityID,
		DayIndex:   day,
		StartSlot:  slot,
		EndSlot:    min(len(slots), slot+DefaultDurationSlots(p.settings.StepMin)),
	}
	p.blocks = append(p.blocks, b)
	p.mu.Unlock()

	p.emit(Event{Kind: BlockPlaced, BlockID: b.ID, ActivityID: activityID})
	return b, nil
}

// updateBlock applies fn to a block under the lock and emits BlockChanged.
func (p *Planner) updateBlock(id string, fn func(b *Block, slots []Slot, days int) error) (Block, error) {
	p.mu.Lock()
	i, ok := p.block(id)
	if !ok {
		p.mu.Unlock()
		return Block{}, fmt.Errorf("block %s: %w", id, ErrNotFound)
	}
	slots, days := p.grid()
	b := p.blocks[i]
	if err := fn(&b, slots, days); err != nil {
		p.mu.Unlock()
		return Block{}, err
	}
	p.blocks[i] = b
	p.mu.Unlock()

	p.emit(Event{Kind: BlockChanged, BlockID: id, ActivityID: b.ActivityID})
	return b, nil
}

// Move drops a block onto day at slot keeping its duration, cut at the end
// of the grid.
func (p *Planner) Move(id string, day, slot int) (Block, error) {
	return p.updateBlock(id, func(b *Block, slots []Slot, days int) error {
		if day < 0 || day >= days {
			return fmt.Errorf("day %d: %w", day, ErrOutOfRange)
		}
		dur := b.EndSlot - b.StartSlot
		b.DayIndex = day
		b.StartSlot = clampInt(slot, 0, len(slots)-1)
		b.EndSlot = min(len(slots), b.StartSlot+dur)
		return nil
	})
}

// ResizeTop moves the start edge to slot, keeping at least one slot.
func (p *Planner) ResizeTop(id string, slot int) (Block, error) {
	return p.updateBlock(id, func(b *Block, slots []Slot, _ int) error {
		b.StartSlot = min(b.EndSlot-1, clampInt(slot, 0, len(slots)-1))
		return nil
	})
}

// ResizeBottom moves the end edge so slot is the last covered row,
// keeping at least one slot.
func (p *Planner) ResizeBottom(id string, slot int) (Block, error) {
	return p.updateBlock(id, func(b *Block, slots []Slot, _ int) error {
		b.EndSlot = max(b.StartSlot+1, clampInt(slot, 0, len(slots)-1)+1)
		return nil
	})
}

// SetSubtitle sets the block's secondary line.
func (p *Planner) SetSubtitle(id, subtitle string) (Block, error) {
	return p.updateBlock(id, func(b *Block, _ []Slot, _ int) error {
		b.Subtitle = strings.TrimSpace(subtitle)
		return nil
	})
}

// DeleteBlock removes one block.
func (p *Planner) DeleteBlock(id string) error {
	p.mu.Lock()
	i, ok := p.block(id)
	if ok {
		p.blocks = append(p.blocks[:i], p.blocks[i+1:]...)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("block %s: %w", id, ErrNotFound)
	}
	p.emit(Event{Kind: BlockDeleted, BlockID: id})
	return nil
}

// Items converts the blocks into renderer items, in placement order.
func (p *Planner) Items() []model.ScheduleItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items()
}

func (p *Planner) items() []model.ScheduleItem {
	slots, _ := p.grid()
	out := make([]model.ScheduleItem, 0, len(p.blocks))
	for _, b := range p.blocks {
		i, ok := p.activity(b.ActivityID)
		if !ok {
			continue
		}
		a := p.activities[i]
		start, end := slotMinutes(slots, p.settings.StepMin, b.StartSlot, b.EndSlot)
		out = append(out, model.ScheduleItem{
			DayIndex: b.DayIndex,
			Start:    model.FormatClock(start),
			End:      endClock(end),
			Title:    a.Name,
			Subtitle: b.Subtitle,
			Color:    a.Color,
		})
	}
	return out
}

// ScheduleData snapshots the planner for export. Empty title and subtitle
// take the "title" and "subtitle" lookups.
// The tick step never exceeds the planner step, so every slot edge stays on
// a poster row.
func (p *Planner) ScheduleData(title, subtitle string) *model.ScheduleData {
	if title == "" {
		title = p.lookup("title")
	}
	if subtitle == "" {
		subtitle = p.lookup("subtitle")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	items := p.items()
	data := &model.ScheduleData{
		Title:       title,
		Subtitle:    subtitle,
		Days:        p.dayNames(),
		TickStepMin: min(SuggestedStep(items), p.settings.StepMin),
		Items:       items,
	}
	if s := p.settings; s.LunchEnabled {
		ls, err1 := model.ParseClock(s.LunchStart)
		le, err2 := model.ParseClock(s.LunchEnd)
		if err1 == nil && err2 == nil && le > ls {
			data.Lunch = &model.Lunch{Start: s.LunchStart, DurationMin: le - ls, Label: p.lookup("lunch")}
		}
	}
	return data
}

// ImportItems places items onto the grid, reusing activities by name and
// creating missing ones with the item color. Times snap to the nearest slot
// edges. Items on days outside the grid are skipped; the number placed is
// returned.
func (p *Planner) ImportItems(items []model.ScheduleItem) (int, error) {
	var events []Event
	placed := 0

	p.mu.Lock()
	slots, days := p.grid()
	for _, it := range items {
		if it.DayIndex < 0 || it.DayIndex >= days {
			continue
		}
		sm, err1 := model.ParseClock(it.Start)
		em, err2 := model.ParseClock(it.End)
		if err1 != nil || err2 != nil || em <= sm {
			continue
		}
		name := strings.TrimSpace(it.Title)
		if name == "" {
			continue
		}

		actID := ""
		for _, a := range p.activities {
			if a.Name == name {
				actID = a.ID
				break
			}
		}
		if actID == "" {
			a := model.Activity{ID: p.newID(), Name: name, Color: it.Color}
			p.activities = append(p.activities, a)
			actID = a.ID
			events = append(events, Event{Kind: ActivityAdded, ActivityID: a.ID})
		}

		start := min(boundary(slots, p.settings.StepMin, sm), len(slots)-1)
		end := max(start+1, boundary(slots, p.settings.StepMin, em))
		b := Block{
			ID:         p.newID(),
			ActivityID: actID,
			DayIndex:   it.DayIndex,
			StartSlot:  start,
			EndSlot:    end,
			Subtitle:   it.Subtitle,
		}
		p.blocks = append(p.blocks, b)
		placed++
		events = append(events, Event{Kind: BlockPlaced, BlockID: b.ID, ActivityID: actID})
	}
	p.mu.Unlock()

	for _, ev := range events {
		p.emit(ev)
	}
	return placed, nil
}

type snapshot struct {
	activities []model.Activity
	blocks     []Block
	settings   Settings
}

func (p *Planner) snapshot() snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return snapshot{
		activities: append([]model.Activity{}, p.activities...),
		blocks:     append([]Block{}, p.blocks...),
		settings:   p.settings,
	}
}

// Save writes activities, blocks and settings to the store.
func (p *Planner) Save() error {
	if p.kv == nil {
		return nil
	}
	s := p.snapshot()
	if err := p.kv.Set(store.KeyActivities, s.activities); err != nil {
		return err
	}
	if err := p.kv.Set(store.KeyBlocks, s.blocks); err != nil {
		return err
	}
	return p.kv.Set(store.KeySettings, s.settings)
}

// Load replaces the state with what the store holds. Missing keys keep
// their defaults; invalid settings fall back to DefaultSettings and
// blocks referencing unknown activities or cells are dropped.
func (p *Planner) Load() error {
	if p.kv == nil {
		return nil
	}
	var (
		acts     []model.Activity
		blocks   []Block
		settings = DefaultSettings()
	)
	if _, err := p.kv.Get(store.KeyActivities, &acts); err != nil {
		return err
	}
	if _, err := p.kv.Get(store.KeyBlocks, &blocks); err != nil {
		return err
	}
	if _, err := p.kv.Get(store.KeySettings, &settings); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		appLog.Warn("stored settings invalid, using defaults", "err", err)
		settings = DefaultSettings()
	}

	p.mu.Lock()
	p.settings = settings
	p.activities = acts
	slots, days := p.grid()
	p.blocks = p.blocks[:0]
	for _, b := range blocks {
		if _, ok := p.activity(b.ActivityID); !ok {
			continue
		}
		if b.DayIndex < 0 || b.DayIndex >= days || b.StartSlot < 0 || b.StartSlot >= len(slots) {
			continue
		}
		b.EndSlot = clampInt(b.EndSlot, b.StartSlot+1, len(slots))
		p.blocks = append(p.blocks, b)
	}
	n, nb := len(p.activities), len(p.blocks)
	p.mu.Unlock()

	appLog.Info("planner loaded", "activities", n, "blocks", nb, "settings", settings.String())
	p.emit(Event{Kind: Loaded})
	return nil
}

// Reset clears the store and returns the planner to its defaults.
func (p *Planner) Reset() error {
	if p.kv != nil {
		if err := store.ClearAll(p.kv); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.settings = DefaultSettings()
	p.activities = nil
	p.blocks = nil
	p.mu.Unlock()
	p.emit(Event{Kind: Loaded})
	return nil
}
