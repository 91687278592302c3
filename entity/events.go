// Package entity holds the records exchanged with the campaign API.
//
// Records are plain values. An update builds a new record; nothing here is
// modified in place once it is stored in the cache.
package entity

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	apperrors "github.com/krisalay/campaign-cache/errors"
)

// EventType is the discriminant carried in every event's "event_type" field.
type EventType string

const (
	EventGame       EventType = "game"
	EventDMReward   EventType = "dm_reward"
	EventFreeform   EventType = "dt_freeform"
	EventSpellbook  EventType = "dt_sbookupd"
	EventMundane    EventType = "dt_mtrade"
	EventCatchingUp EventType = "dt_catchingup"
	EventBastion    EventType = "dt_bastion"
)

// EventTypes lists every known kind.
var EventTypes = []EventType{
	EventGame, EventDMReward, EventFreeform, EventSpellbook, EventMundane, EventCatchingUp, EventBastion,
}

func (t EventType) Valid() bool {
	for _, k := range EventTypes {
		if t == k {
			return true
		}
	}
	return false
}

// EventHeader is shared by every event kind.
type EventHeader struct {
	UUID          string    `json:"uuid,omitempty"`
	CharacterUUID string    `json:"character_uuid,omitempty"`
	EventType     EventType `json:"event_type"`
	Datetime      string    `json:"datetime,omitempty"`
	Editable      bool      `json:"editable"`
}

/*
Event is the tagged union of character events. The set of implementations
is closed; consumers switch on the concrete type:

	switch ev := ev.(type) {
	case *entity.GameEvent:
	case *entity.FreeformEvent:
	...
	}
*/
type Event interface {
	Kind() EventType
	Header() EventHeader

	withHeader(h EventHeader) Event
}

// WithHeader returns a copy of ev carrying h. The event type always follows ev's kind.
func WithHeader(ev Event, h EventHeader) Event {
	h.EventType = ev.Kind()
	return ev.withHeader(h)
}

// WithID returns a copy of ev with its identifier replaced.
func WithID(ev Event, id string) Event {
	h := ev.Header()
	h.UUID = id
	return WithHeader(ev, h)
}

// DowntimeActivity is the body shared by the downtime activity kinds.
type DowntimeActivity struct {
	Title          string  `json:"title,omitempty"`
	Details        string  `json:"details,omitempty" validate:"max=4096"`
	GoldChange     float64 `json:"gold_change"`
	DowntimeChange float64 `json:"downtime_change"`
}

type PartyMember struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

type GameEvent struct {
	EventHeader
	Name        string        `json:"name" validate:"required"`
	DMUUID      string        `json:"dm_uuid,omitempty"`
	DMName      string        `json:"dm_name"`
	Module      string        `json:"module"`
	Hours       float64       `json:"hours" validate:"gte=0"`
	HoursNotes  string        `json:"hours_notes"`
	Location    string        `json:"location"`
	Downtime    float64       `json:"downtime"`
	Gold        float64       `json:"gold"`
	Levels      int           `json:"levels" validate:"gte=0"`
	MagicItems  []MagicItem   `json:"magicitems"`
	Consumables []Consumable  `json:"consumables"`
	Notes       string        `json:"notes"`
	Characters  []PartyMember `json:"characters,omitempty"`
}

type FreeformEvent struct {
	EventHeader
	DowntimeActivity
	AutoApply *bool `json:"auto_apply,omitempty"`
}

type SpellbookUpdateEvent struct {
	EventHeader
	GoldChange float64 `json:"gold_change"`
	DMName     string  `json:"dm_name"`
	Downtime   float64 `json:"downtime"`
	Source     string  `json:"source"`
	SpellsText string  `json:"spellsText"`
}

type MundaneTradeEvent struct {
	EventHeader
	DowntimeActivity
}

type CatchingUpEvent struct {
	EventHeader
	DowntimeActivity
}

type BastionEvent struct {
	EventHeader
	DowntimeActivity
}

// DMRewardEvent is a reward claimed with dungeon-master service hours.
type DMRewardEvent struct {
	EventHeader
	Title                  string  `json:"title,omitempty"`
	DM                     string  `json:"dm"`
	Name                   string  `json:"name"`
	Gold                   float64 `json:"gold"`
	Downtime               float64 `json:"downtime"`
	Hours                  float64 `json:"hours"`
	CharacterLevelAssigned int     `json:"character_level_assigned"`
	CharacterItemsAssigned int     `json:"character_items_assigned"`
}

func (*GameEvent) Kind() EventType            { return EventGame }
func (*FreeformEvent) Kind() EventType        { return EventFreeform }
func (*SpellbookUpdateEvent) Kind() EventType { return EventSpellbook }
func (*MundaneTradeEvent) Kind() EventType    { return EventMundane }
func (*CatchingUpEvent) Kind() EventType      { return EventCatchingUp }
func (*BastionEvent) Kind() EventType         { return EventBastion }
func (*DMRewardEvent) Kind() EventType        { return EventDMReward }

func (e *GameEvent) Header() EventHeader            { return e.EventHeader }
func (e *FreeformEvent) Header() EventHeader        { return e.EventHeader }
func (e *SpellbookUpdateEvent) Header() EventHeader { return e.EventHeader }
func (e *MundaneTradeEvent) Header() EventHeader    { return e.EventHeader }
func (e *CatchingUpEvent) Header() EventHeader      { return e.EventHeader }
func (e *BastionEvent) Header() EventHeader         { return e.EventHeader }
func (e *DMRewardEvent) Header() EventHeader        { return e.EventHeader }

func (e *GameEvent) withHeader(h EventHeader) Event {
	c := *e
	c.EventHeader = h
	return &c
}

func (e *FreeformEvent) withHeader(h EventHeader) Event {
	c := *e
	c.EventHeader = h
	return &c
}

func (e *SpellbookUpdateEvent) withHeader(h EventHeader) Event {
	c := *e
	c.EventHeader = h
	return &c
}

func (e *MundaneTradeEvent) withHeader(h EventHeader) Event {
	c := *e
	c.EventHeader = h
	return &c
}

func (e *CatchingUpEvent) withHeader(h EventHeader) Event {
	c := *e
	c.EventHeader = h
	return &c
}

func (e *BastionEvent) withHeader(h EventHeader) Event {
	c := *e
	c.EventHeader = h
	return &c
}

func (e *DMRewardEvent) withHeader(h EventHeader) Event {
	c := *e
	c.EventHeader = h
	return &c
}

// newEvent returns an empty event of kind t.
func newEvent(t EventType) (Event, error) {
	switch t {
	case EventGame:
		return &GameEvent{}, nil
	case EventFreeform:
		return &FreeformEvent{}, nil
	case EventSpellbook:
		return &SpellbookUpdateEvent{}, nil
	case EventMundane:
		return &MundaneTradeEvent{}, nil
	case EventCatchingUp:
		return &CatchingUpEvent{}, nil
	case EventBastion:
		return &BastionEvent{}, nil
	case EventDMReward:
		return &DMRewardEvent{}, nil
	}
	return nil, apperrors.Unsupported("entity.DecodeEvent", fmt.Sprintf("unknown event type %q", t))
}

// DecodeEvent decodes one event, choosing the concrete type by its event_type.
func DecodeEvent(data []byte) (Event, error) {
	ev, _, err := decodeEvent(data)
	return ev, err
}

func decodeEvent(data []byte) (Event, EventType, error) {
	var tag struct {
		EventType EventType `json:"event_type"`
	}
	if err := sonic.Unmarshal(data, &tag); err != nil {
		return nil, "", fmt.Errorf("entity.DecodeEvent: %w", err)
	}

	ev, err := newEvent(tag.EventType)
	if err != nil {
		return nil, tag.EventType, err
	}
	if err := sonic.Unmarshal(data, ev); err != nil {
		return nil, tag.EventType, fmt.Errorf("entity.DecodeEvent: %w", err)
	}
	return ev, tag.EventType, nil
}

/*
DecodeEvents decodes a JSON array of events of mixed kinds.

Events of a kind this package does not know are left out and their types
returned in skipped, so a new kind on the server does not hide the rest of
the list. Any other malformed event fails the whole array.
*/
func DecodeEvents(data []byte) (events []Event, skipped []EventType, err error) {
	var raw []json.RawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("entity.DecodeEvents: %w", err)
	}

	events = make([]Event, 0, len(raw))
	for _, r := range raw {
		ev, kind, err := decodeEvent(r)
		if apperrors.IsUnsupported(err) {
			skipped = append(skipped, kind)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

// FindEvent returns the index of the event with id, or -1.
func FindEvent(events []Event, id string) int {
	for i, ev := range events {
		if ev.Header().UUID == id {
			return i
		}
	}
	return -1
}
