// Package ledger keeps a character's campaign records in the query cache:
// reads go through the cache, writes through the mutation protocol.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krisalay/campaign-cache/entity"
	apperrors "github.com/krisalay/campaign-cache/errors"
	"github.com/krisalay/campaign-cache/mutation"
	"github.com/krisalay/campaign-cache/remote"
	"github.com/krisalay/campaign-cache/types"
)

// Cache is what the ledger needs from the query cache.
// *cache.QueryCache implements it.
type Cache interface {
	mutation.Cache
	Get(key types.QueryKey) (types.CacheEntry, bool)
	Fetch(ctx context.Context, key types.QueryKey) (any, error)
	Subscribe(key types.QueryKey, fn types.Listener) func()
	Hydrate(key types.QueryKey, value any) bool
}

// Client is the campaign ledger: cached reads and optimistic writes of
// events, items, adverts and rewards.
type Client struct {
	cache    Cache
	api      API
	router   *Router
	store    types.SnapshotStore
	validate *validator.Validate
	newID    func() string
	now      func() time.Time
	logger   *zap.Logger
	mutOpts  []mutation.Option

	createEvent *mutation.Mutation[eventInput, entity.Event]
	updateEvent *mutation.Mutation[eventInput, struct{}]
	deleteEvent *mutation.Mutation[eventInput, struct{}]

	createMagicItem       *mutation.Mutation[magicItemInput, *entity.MagicItem]
	updateMagicItem       *mutation.Mutation[magicItemPatchInput, struct{}]
	updateMagicItemDetail *mutation.Mutation[magicItemPatchInput, struct{}]
	deleteMagicItem       *mutation.Mutation[idInput, struct{}]

	createConsumable *mutation.Mutation[consumableInput, *entity.Consumable]
	updateConsumable *mutation.Mutation[consumablePatchInput, struct{}]
	deleteConsumable *mutation.Mutation[idInput, struct{}]

	createAdvert *mutation.Mutation[advertInput, *entity.Advert]
	deleteAdvert *mutation.Mutation[idInput, struct{}]

	createDMReward *mutation.Mutation[rewardInput, *entity.DMRewardEvent]
	deleteDMReward *mutation.Mutation[idInput, struct{}]
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSnapshotStore sets the store Hydrate restores from.
func WithSnapshotStore(s types.SnapshotStore) Option {
	return func(c *Client) { c.store = s }
}

// WithMutationOptions configures the coordinator every write runs through.
func WithMutationOptions(opts ...mutation.Option) Option {
	return func(c *Client) { c.mutOpts = append(c.mutOpts, opts...) }
}

// WithIDGenerator replaces the generator of temporary identifiers.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a ledger over cache. router must be the loader cache was built with.
func New(cache Cache, api API, router *Router, opts ...Option) *Client {
	c := &Client{
		cache:    cache,
		api:      api,
		router:   router,
		validate: validator.New(),
		newID:    uuid.NewString,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	coord := mutation.NewCoordinator(cache, append([]mutation.Option{mutation.WithLogger(c.logger)}, c.mutOpts...)...)
	c.registerEvents(coord)
	c.registerItems(coord)
	c.registerTrade(coord)
	return c
}

// check validates v before any I/O.
func (c *Client) check(op string, v any) error {
	if err := c.validate.Struct(v); err != nil {
		return apperrors.Validation(op, err)
	}
	return nil
}

func fetch[T any](ctx context.Context, c Cache, key types.QueryKey) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("ledger: %s holds %T, not %T", key, v, zero)
	}
	return out, nil
}

// watch subscribes fn to key. Entries without a value of type T are
// delivered with the zero T.
func watch[T any](c Cache, key types.QueryKey, fn func(T, types.CacheEntry)) func() {
	return c.Subscribe(key, func(ent types.CacheEntry) {
		v, _ := ent.Value.(T)
		fn(v, ent)
	})
}

func (c *Client) Character(ctx context.Context, characterUUID string) (entity.Character, error) {
	return fetch[entity.Character](ctx, c.cache, CharacterKey(characterUUID))
}

func (c *Client) WatchCharacter(characterUUID string, fn func(entity.Character, types.CacheEntry)) func() {
	return watch(c.cache, CharacterKey(characterUUID), fn)
}

/*
Hydrate fills the cache from the snapshot store, for the given keys. Restored
entries are stale: they are shown at once and revalidated on first use.
It returns how many keys were restored. Unreadable snapshots are skipped.
*/
func (c *Client) Hydrate(ctx context.Context, keys ...types.QueryKey) (int, error) {
	if c.store == nil {
		return 0, nil
	}

	n := 0
	for _, key := range keys {
		data, ok, err := c.store.Load(ctx, key)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		v, err := c.router.Decode(key, data)
		if err != nil {
			c.logger.Warn("snapshot skipped", zap.Stringer("key", key), zap.Error(err))
			continue
		}
		if c.cache.Hydrate(key, v) {
			n++
		}
	}
	return n, nil
}

func (c *Client) timestamp() string {
	return c.now().UTC().Format(time.RFC3339)
}

var _ API = (*remote.Client)(nil)
