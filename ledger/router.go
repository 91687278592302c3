package ledger

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/krisalay/campaign-cache/entity"
	apperrors "github.com/krisalay/campaign-cache/errors"
	"github.com/krisalay/campaign-cache/types"
)

// API is the remote accessor the ledger reads and writes through.
// *remote.Client implements it.
type API interface {
	ListEvents(ctx context.Context, characterUUID string) ([]entity.Event, error)
	CreateEvent(ctx context.Context, characterUUID string, ev entity.Event) (entity.Event, error)
	UpdateEvent(ctx context.Context, ev entity.Event) error
	DeleteEvent(ctx context.Context, characterUUID string, ev entity.Event) error

	ListDMRewards(ctx context.Context, dmUUID string) ([]entity.DMRewardEvent, error)
	CreateDMReward(ctx context.Context, dmUUID string, req entity.DMRewardRequest) (*entity.DMRewardEvent, error)
	DeleteDMReward(ctx context.Context, rewardUUID string) error

	GetCharacter(ctx context.Context, characterUUID string) (*entity.Character, error)

	ListMagicItems(ctx context.Context, characterUUID string) ([]entity.MagicItem, error)
	GetMagicItem(ctx context.Context, itemUUID string) (*entity.MagicItem, error)
	CreateMagicItem(ctx context.Context, characterUUID string, item entity.MagicItem) (*entity.MagicItem, error)
	UpdateMagicItem(ctx context.Context, patch entity.MagicItemPatch) error
	DeleteMagicItem(ctx context.Context, itemUUID string) error
	MagicItemHistory(ctx context.Context, itemUUID string) ([]entity.ItemEvent, error)

	ListConsumables(ctx context.Context, characterUUID string) ([]entity.Consumable, error)
	CreateConsumable(ctx context.Context, characterUUID string, item entity.Consumable) (*entity.Consumable, error)
	UpdateConsumable(ctx context.Context, patch entity.ConsumablePatch) error
	DeleteConsumable(ctx context.Context, itemUUID string) error

	OwnAdverts(ctx context.Context) ([]entity.Advert, error)
	GetAdvert(ctx context.Context, advertUUID string) (*entity.Advert, error)
	CreateAdvert(ctx context.Context, req entity.AdvertRequest) (*entity.Advert, error)
	DeleteAdvert(ctx context.Context, advertUUID string) error
}

const wildcard = "*"

type route struct {
	pattern types.QueryKey
	load    func(ctx context.Context, args []string) (any, error)
	decode  func(data []byte) (any, error)
}

/*
Router is the cache loader: it maps a query key to the API call that
produces its value. Patterns are keys in which "*" matches any one part;
the matched parts are handed to the route in order.

It also decodes snapshots persisted for those keys.
*/
type Router struct {
	routes []route
}

func (r *Router) match(key types.QueryKey) (route, []string, bool) {
	for _, rt := range r.routes {
		if len(rt.pattern) != len(key) {
			continue
		}
		var args []string
		ok := true
		for i, p := range rt.pattern {
			switch {
			case p == wildcard:
				args = append(args, key[i])
			case p != key[i]:
				ok = false
			}
			if !ok {
				break
			}
		}
		if ok {
			return rt, args, true
		}
	}
	return route{}, nil, false
}

func (r *Router) Load(ctx context.Context, key types.QueryKey) (any, error) {
	rt, args, ok := r.match(key)
	if !ok {
		return nil, apperrors.Unsupported("ledger.Load", fmt.Sprintf("no route for key %s", key))
	}
	return rt.load(ctx, args)
}

// Decode turns a persisted snapshot of key back into the value Load returns.
func (r *Router) Decode(key types.QueryKey, data []byte) (any, error) {
	rt, _, ok := r.match(key)
	if !ok {
		return nil, apperrors.Unsupported("ledger.Decode", fmt.Sprintf("no route for key %s", key))
	}
	return rt.decode(data)
}

// handle registers a route whose snapshots decode as plain JSON into T.
func handle[T any](r *Router, pattern types.QueryKey, load func(ctx context.Context, args []string) (T, error)) {
	r.routes = append(r.routes, route{
		pattern: pattern,
		load: func(ctx context.Context, args []string) (any, error) {
			v, err := load(ctx, args)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
		decode: func(data []byte) (any, error) {
			var v T
			if err := sonic.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	})
}

func deref[T any](v *T, err error) (T, error) {
	if err != nil || v == nil {
		var zero T
		return zero, err
	}
	return *v, nil
}

// NewRouter registers a route for every key in keys.go.
func NewRouter(api API) *Router {
	r := &Router{}

	r.routes = append(r.routes, route{
		pattern: EventsKey(wildcard),
		load: func(ctx context.Context, args []string) (any, error) {
			events, err := api.ListEvents(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return events, nil
		},
		decode: func(data []byte) (any, error) {
			events, _, err := entity.DecodeEvents(data)
			if err != nil {
				return nil, err
			}
			return events, nil
		},
	})

	handle(r, CharacterKey(wildcard), func(ctx context.Context, args []string) (entity.Character, error) {
		return deref(api.GetCharacter(ctx, args[0]))
	})
	handle(r, MagicItemsKey(wildcard), func(ctx context.Context, args []string) ([]entity.MagicItem, error) {
		return api.ListMagicItems(ctx, args[0])
	})
	handle(r, MagicItemKey(wildcard), func(ctx context.Context, args []string) (entity.MagicItem, error) {
		return deref(api.GetMagicItem(ctx, args[0]))
	})
	handle(r, MagicItemHistoryKey(wildcard), func(ctx context.Context, args []string) ([]entity.ItemEvent, error) {
		return api.MagicItemHistory(ctx, args[0])
	})
	handle(r, ConsumablesKey(wildcard), func(ctx context.Context, args []string) ([]entity.Consumable, error) {
		return api.ListConsumables(ctx, args[0])
	})
	handle(r, OwnAdvertsKey(), func(ctx context.Context, _ []string) ([]entity.Advert, error) {
		return api.OwnAdverts(ctx)
	})
	handle(r, AdvertKey(wildcard), func(ctx context.Context, args []string) (entity.Advert, error) {
		return deref(api.GetAdvert(ctx, args[0]))
	})
	handle(r, DMRewardsKey(wildcard), func(ctx context.Context, args []string) ([]entity.DMRewardEvent, error) {
		return api.ListDMRewards(ctx, args[0])
	})

	return r
}
