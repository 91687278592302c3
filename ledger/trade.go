package ledger

import (
	"context"
	"fmt"

	"github.com/krisalay/campaign-cache/entity"
	apperrors "github.com/krisalay/campaign-cache/errors"
	"github.com/krisalay/campaign-cache/mutation"
	"github.com/krisalay/campaign-cache/types"
)

type advertInput struct {
	req  entity.AdvertRequest
	item entity.MagicItem
}

type rewardInput struct {
	dm  string
	req entity.DMRewardRequest
}

func (c *Client) registerTrade(coord *mutation.Coordinator) {
	c.createAdvert = mutation.New(coord, mutation.Definition[advertInput, *entity.Advert]{
		Name: "createAdvert",
		Key:  func(advertInput) types.QueryKey { return OwnAdvertsKey() },
		Optimistic: func(prev any, exists bool, in advertInput) (any, bool, error) {
			ad := entity.Advert{
				UUID:        c.newID(),
				Datetime:    c.timestamp(),
				Description: in.req.Description,
				Item:        in.item,
			}
			return appendTo(prev, exists, ad)
		},
		Mutate: func(ctx context.Context, in advertInput) (*entity.Advert, error) {
			return c.api.CreateAdvert(ctx, in.req)
		},
	})

	c.deleteAdvert = mutation.New(coord, mutation.Definition[idInput, struct{}]{
		Name: "deleteAdvert",
		Key:  func(idInput) types.QueryKey { return OwnAdvertsKey() },
		Optimistic: func(prev any, exists bool, in idInput) (any, bool, error) {
			return removeFrom(prev, exists, advertID, in.id)
		},
		Mutate: func(ctx context.Context, in idInput) (struct{}, error) {
			return struct{}{}, c.api.DeleteAdvert(ctx, in.id)
		},
		Invalidates: func(in idInput) []types.QueryKey {
			return []types.QueryKey{AdvertKey(in.id)}
		},
		TreatNotFoundAsDone: true,
	})

	c.createDMReward = mutation.New(coord, mutation.Definition[rewardInput, *entity.DMRewardEvent]{
		Name: "createDMReward",
		Key:  func(in rewardInput) types.QueryKey { return DMRewardsKey(in.dm) },
		Optimistic: func(prev any, exists bool, in rewardInput) (any, bool, error) {
			reward := entity.DMRewardEvent{
				DM:       in.dm,
				Name:     in.req.Name,
				Gold:     in.req.Gold,
				Downtime: in.req.Downtime,
				Hours:    in.req.Hours,
			}
			reward.EventHeader = entity.EventHeader{
				UUID:          c.newID(),
				CharacterUUID: in.req.CharItems,
				EventType:     entity.EventDMReward,
				Datetime:      c.timestamp(),
				Editable:      true,
			}
			return appendTo(prev, exists, reward)
		},
		Mutate: func(ctx context.Context, in rewardInput) (*entity.DMRewardEvent, error) {
			return c.api.CreateDMReward(ctx, in.dm, in.req)
		},
		Invalidates: func(rewardInput) []types.QueryKey {
			return []types.QueryKey{allEvents, allCharacters}
		},
	})

	c.deleteDMReward = mutation.New(coord, mutation.Definition[idInput, struct{}]{
		Name: "deleteDMReward",
		Key:  func(in idInput) types.QueryKey { return DMRewardsKey(in.owner) },
		Optimistic: func(prev any, exists bool, in idInput) (any, bool, error) {
			return removeFrom(prev, exists, rewardID, in.id)
		},
		Mutate: func(ctx context.Context, in idInput) (struct{}, error) {
			return struct{}{}, c.api.DeleteDMReward(ctx, in.id)
		},
		Invalidates: func(idInput) []types.QueryKey {
			return []types.QueryKey{allEvents, allCharacters}
		},
		TreatNotFoundAsDone: true,
	})
}

// Adverts returns the trading post adverts of the signed-in user.
func (c *Client) Adverts(ctx context.Context) ([]entity.Advert, error) {
	return fetch[[]entity.Advert](ctx, c.cache, OwnAdvertsKey())
}

func (c *Client) Advert(ctx context.Context, advertUUID string) (entity.Advert, error) {
	return fetch[entity.Advert](ctx, c.cache, AdvertKey(advertUUID))
}

func (c *Client) CreateAdvert(ctx context.Context, req entity.AdvertRequest) (*entity.Advert, error) {
	if err := c.check("ledger.CreateAdvert", req); err != nil {
		return nil, err
	}

	// The pending advert shows the item as last cached, if it was.
	in := advertInput{req: req, item: entity.MagicItem{UUID: req.ItemUUID}}
	if ent, ok := c.cache.Get(MagicItemKey(req.ItemUUID)); ok {
		if item, ok := ent.Value.(entity.MagicItem); ok {
			in.item = item
		}
	}
	return c.createAdvert.Run(ctx, in)
}

func (c *Client) DeleteAdvert(ctx context.Context, advertUUID string) error {
	if advertUUID == "" {
		return apperrors.Validation("ledger.DeleteAdvert", fmt.Errorf("advert identifier is required"))
	}
	_, err := c.deleteAdvert.Run(ctx, idInput{id: advertUUID})
	return err
}

// DMRewards returns the rewards claimed by a dungeon master.
func (c *Client) DMRewards(ctx context.Context, dmUUID string) ([]entity.DMRewardEvent, error) {
	return fetch[[]entity.DMRewardEvent](ctx, c.cache, DMRewardsKey(dmUUID))
}

/*
CreateDMReward claims a reward with service hours. Rewards land on
characters as events, so every cached event list and character summary
is reloaded afterwards.
*/
func (c *Client) CreateDMReward(ctx context.Context, dmUUID string, req entity.DMRewardRequest) (*entity.DMRewardEvent, error) {
	if err := c.check("ledger.CreateDMReward", req); err != nil {
		return nil, err
	}
	return c.createDMReward.Run(ctx, rewardInput{dm: dmUUID, req: req})
}

func (c *Client) DeleteDMReward(ctx context.Context, dmUUID, rewardUUID string) error {
	_, err := c.deleteDMReward.Run(ctx, idInput{owner: dmUUID, id: rewardUUID})
	return err
}
