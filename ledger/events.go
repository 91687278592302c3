package ledger

import (
	"context"
	"fmt"

	"github.com/krisalay/campaign-cache/entity"
	apperrors "github.com/krisalay/campaign-cache/errors"
	"github.com/krisalay/campaign-cache/mutation"
	"github.com/krisalay/campaign-cache/remote"
	"github.com/krisalay/campaign-cache/types"
)

type eventInput struct {
	character string
	event     entity.Event
}

func (c *Client) registerEvents(coord *mutation.Coordinator) {
	key := func(in eventInput) types.QueryKey { return EventsKey(in.character) }

	c.createEvent = mutation.New(coord, mutation.Definition[eventInput, entity.Event]{
		Name: "createEvent",
		Key:  key,
		Optimistic: func(prev any, exists bool, in eventInput) (any, bool, error) {
			// Shown under a temporary id until the list is reloaded.
			pending := entity.WithHeader(in.event, entity.EventHeader{
				UUID:          c.newID(),
				CharacterUUID: in.character,
				Datetime:      c.timestamp(),
				Editable:      true,
			})
			return appendTo(prev, exists, pending)
		},
		Mutate: func(ctx context.Context, in eventInput) (entity.Event, error) {
			return c.api.CreateEvent(ctx, in.character, in.event)
		},
		Invalidates: func(in eventInput) []types.QueryKey {
			return []types.QueryKey{CharacterKey(in.character), MagicItemsKey(in.character)}
		},
	})

	c.updateEvent = mutation.New(coord, mutation.Definition[eventInput, struct{}]{
		Name: "updateEvent",
		Key:  key,
		Optimistic: func(prev any, exists bool, in eventInput) (any, bool, error) {
			return replaceIn(prev, exists, eventID, eventID(in.event), func(cur entity.Event) entity.Event {
				h := in.event.Header()
				h.CharacterUUID = cur.Header().CharacterUUID
				h.Datetime = cur.Header().Datetime
				return entity.WithHeader(in.event, h)
			})
		},
		Mutate: func(ctx context.Context, in eventInput) (struct{}, error) {
			return struct{}{}, c.api.UpdateEvent(ctx, in.event)
		},
		Invalidates: func(in eventInput) []types.QueryKey {
			return []types.QueryKey{CharacterKey(in.character)}
		},
	})

	c.deleteEvent = mutation.New(coord, mutation.Definition[eventInput, struct{}]{
		Name: "deleteEvent",
		Key:  key,
		Optimistic: func(prev any, exists bool, in eventInput) (any, bool, error) {
			return removeFrom(prev, exists, eventID, eventID(in.event))
		},
		Mutate: func(ctx context.Context, in eventInput) (struct{}, error) {
			return struct{}{}, c.api.DeleteEvent(ctx, in.character, in.event)
		},
		Invalidates: func(in eventInput) []types.QueryKey {
			return []types.QueryKey{CharacterKey(in.character)}
		},
		TreatNotFoundAsDone: true,
	})
}

// Events returns every event of a character, of mixed kinds, oldest first.
func (c *Client) Events(ctx context.Context, characterUUID string) ([]entity.Event, error) {
	return fetch[[]entity.Event](ctx, c.cache, EventsKey(characterUUID))
}

// WatchEvents calls fn with the character's event list now and on every change.
func (c *Client) WatchEvents(characterUUID string, fn func([]entity.Event, types.CacheEntry)) func() {
	return watch(c.cache, EventsKey(characterUUID), fn)
}

/*
CreateEvent records ev for a character.

While the request runs, the cached list shows ev under a temporary id.
Once the API answers, the list, the character summary and the character's
magic items are reloaded, so the temporary entry is replaced by the
server's. On failure the list is put back as it was.
*/
func (c *Client) CreateEvent(ctx context.Context, characterUUID string, ev entity.Event) (entity.Event, error) {
	const op = "ledger.CreateEvent"
	if ev == nil {
		return nil, apperrors.Validation(op, fmt.Errorf("event is nil"))
	}
	if !remote.CanCreate(ev.Kind()) {
		return nil, apperrors.Unsupported(op, fmt.Sprintf("event type %q cannot be created", ev.Kind()))
	}
	if err := c.check(op, ev); err != nil {
		return nil, err
	}
	return c.createEvent.Run(ctx, eventInput{character: characterUUID, event: ev})
}

// UpdateEvent replaces the event with ev's identifier, in the cache at once
// and then on the API.
func (c *Client) UpdateEvent(ctx context.Context, characterUUID string, ev entity.Event) error {
	const op = "ledger.UpdateEvent"
	if ev == nil || ev.Header().UUID == "" {
		return apperrors.Validation(op, fmt.Errorf("event identifier is required"))
	}
	if !remote.CanUpdate(ev.Kind()) {
		return apperrors.Unsupported(op, fmt.Sprintf("event type %q cannot be updated", ev.Kind()))
	}
	if err := c.check(op, ev); err != nil {
		return err
	}
	_, err := c.updateEvent.Run(ctx, eventInput{character: characterUUID, event: ev})
	return err
}

/*
DeleteEvent removes ev from a character's list. Deleting an event the cached
list no longer holds does nothing, and an event the API no longer knows
counts as deleted.
*/
func (c *Client) DeleteEvent(ctx context.Context, characterUUID string, ev entity.Event) error {
	const op = "ledger.DeleteEvent"
	if ev == nil || ev.Header().UUID == "" {
		return apperrors.Validation(op, fmt.Errorf("event identifier is required"))
	}
	if !remote.CanDelete(ev.Kind()) {
		return apperrors.Unsupported(op, fmt.Sprintf("event type %q cannot be deleted", ev.Kind()))
	}
	_, err := c.deleteEvent.Run(ctx, eventInput{character: characterUUID, event: ev})
	return err
}
