package remote

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/krisalay/campaign-cache/entity"
	apperrors "github.com/krisalay/campaign-cache/errors"
)

// Endpoint segment per event kind and operation. Kinds missing from a map
// have no endpoint for that operation.
var (
	createSegments = map[entity.EventType]string{
		entity.EventGame:       "game",
		entity.EventMundane:    "mundanetrade",
		entity.EventCatchingUp: "catchingup",
		entity.EventSpellbook:  "spellbook",
		entity.EventFreeform:   "freeform",
	}
	updateSegments = map[entity.EventType]string{
		entity.EventGame:       "game",
		entity.EventMundane:    "mundanetrade",
		entity.EventCatchingUp: "catchingup",
		entity.EventSpellbook:  "spellbook_update",
		entity.EventFreeform:   "freeform",
		entity.EventDMReward:   "dm_reward",
	}
	deleteSegments = map[entity.EventType]string{
		entity.EventMundane:    "mundanetrade",
		entity.EventCatchingUp: "catchingup",
		entity.EventSpellbook:  "spellbook",
		entity.EventFreeform:   "freeform",
		entity.EventDMReward:   "dm_reward",
	}
)

func unsupported(op string, kind entity.EventType) error {
	return apperrors.Unsupported(op, fmt.Sprintf("no endpoint for event type %q", kind))
}

// ListEvents returns every event of a character, of mixed kinds.
func (c *Client) ListEvents(ctx context.Context, characterUUID string) ([]entity.Event, error) {
	const op = "remote.ListEvents"
	data, err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   pathf("/api/data/character_events/%s", characterUUID),
	})
	if err != nil {
		return nil, err
	}
	events, skipped, err := entity.DecodeEvents(data)
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	for _, kind := range skipped {
		c.logger.Warn("skipped event of unknown type",
			zap.String("character", characterUUID),
			zap.String("event_type", string(kind)),
		)
	}
	return events, nil
}

/*
CreateEvent records ev for a character. The endpoint is chosen by the
event's kind; kinds without a create endpoint fail before any I/O.
The created event is returned when the API echoes it.
*/
func (c *Client) CreateEvent(ctx context.Context, characterUUID string, ev entity.Event) (entity.Event, error) {
	const op = "remote.CreateEvent"
	seg, ok := createSegments[ev.Kind()]
	if !ok {
		return nil, unsupported(op, ev.Kind())
	}

	h := ev.Header()
	h.CharacterUUID = characterUUID
	data, err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/api/data/" + seg,
		body:   entity.WithHeader(ev, h),
	})
	if err != nil || len(data) == 0 {
		return nil, err
	}

	// The event is stored at this point; an unreadable echo must not turn
	// the create into a failure.
	created, err := entity.DecodeEvent(data)
	if err != nil {
		c.logger.Warn("created event not decoded",
			zap.String("character", characterUUID),
			zap.String("body", excerpt(data)),
			zap.Error(err),
		)
		return nil, nil
	}
	return created, nil
}

// UpdateEvent sends ev as a partial update of the event with the same identifier.
func (c *Client) UpdateEvent(ctx context.Context, ev entity.Event) error {
	const op = "remote.UpdateEvent"
	seg, ok := updateSegments[ev.Kind()]
	if !ok {
		return unsupported(op, ev.Kind())
	}
	return c.call(ctx, request{
		op:     op,
		method: http.MethodPatch,
		path:   pathf("/api/data/"+seg+"/%s", ev.Header().UUID),
		body:   entity.WithHeader(ev, ev.Header()),
	}, nil)
}

/*
DeleteEvent removes ev from a character. A game is shared by its whole
party, so for games only the character is taken off the roster.
*/
func (c *Client) DeleteEvent(ctx context.Context, characterUUID string, ev entity.Event) error {
	const op = "remote.DeleteEvent"
	id := ev.Header().UUID

	if ev.Kind() == entity.EventGame {
		return c.call(ctx, request{
			op:     op,
			method: http.MethodPost,
			path:   pathf("/api/data/game/%s/remove_character", id),
			body:   map[string]string{"character_uuid": characterUUID},
		}, nil)
	}

	seg, ok := deleteSegments[ev.Kind()]
	if !ok {
		return unsupported(op, ev.Kind())
	}
	return c.call(ctx, request{
		op:     op,
		method: http.MethodDelete,
		path:   pathf("/api/data/"+seg+"/%s", id),
	}, nil)
}

// ListDMRewards returns the rewards claimed by a dungeon master.
func (c *Client) ListDMRewards(ctx context.Context, dmUUID string) ([]entity.DMRewardEvent, error) {
	var out []entity.DMRewardEvent
	err := c.call(ctx, request{
		op:     "remote.ListDMRewards",
		method: http.MethodGet,
		path:   "/api/data/dm_reward",
		query:  map[string][]string{"dm": {dmUUID}},
	}, &out)
	return out, err
}

func (c *Client) CreateDMReward(ctx context.Context, dmUUID string, req entity.DMRewardRequest) (*entity.DMRewardEvent, error) {
	body := struct {
		entity.DMRewardRequest
		DM string `json:"dm"`
	}{req, dmUUID}

	var out entity.DMRewardEvent
	if err := c.call(ctx, request{
		op:     "remote.CreateDMReward",
		method: http.MethodPost,
		path:   "/api/data/dm_reward",
		body:   body,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDMReward(ctx context.Context, rewardUUID string) error {
	return c.call(ctx, request{
		op:     "remote.DeleteDMReward",
		method: http.MethodDelete,
		path:   pathf("/api/data/dm_reward/%s", rewardUUID),
	}, nil)
}

// GetCharacter returns a character summary.
func (c *Client) GetCharacter(ctx context.Context, characterUUID string) (*entity.Character, error) {
	var out entity.Character
	if err := c.call(ctx, request{
		op:     "remote.GetCharacter",
		method: http.MethodGet,
		path:   pathf("/api/data/characters/%s", characterUUID),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CanCreate reports whether events of kind can be created.
func CanCreate(kind entity.EventType) bool {
	_, ok := createSegments[kind]
	return ok
}

// CanUpdate reports whether events of kind can be updated.
func CanUpdate(kind entity.EventType) bool {
	_, ok := updateSegments[kind]
	return ok
}

// CanDelete reports whether events of kind can be deleted.
func CanDelete(kind entity.EventType) bool {
	_, ok := deleteSegments[kind]
	return ok || kind == entity.EventGame
}
