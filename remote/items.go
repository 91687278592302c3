package remote

import (
	"context"
	"net/http"

	"github.com/krisalay/campaign-cache/entity"
)

func (c *Client) ListMagicItems(ctx context.Context, characterUUID string) ([]entity.MagicItem, error) {
	var out []entity.MagicItem
	err := c.call(ctx, request{
		op:     "remote.ListMagicItems",
		method: http.MethodGet,
		path:   "/api/data/magicitem",
		query:  map[string][]string{"character": {characterUUID}},
	}, &out)
	return out, err
}

func (c *Client) GetMagicItem(ctx context.Context, itemUUID string) (*entity.MagicItem, error) {
	var out entity.MagicItem
	if err := c.call(ctx, request{
		op:     "remote.GetMagicItem",
		method: http.MethodGet,
		path:   pathf("/api/data/magicitem/%s", itemUUID),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMagicItem gives item to a character and returns the stored copy.
func (c *Client) CreateMagicItem(ctx context.Context, characterUUID string, item entity.MagicItem) (*entity.MagicItem, error) {
	item.UUID = ""
	item.CharacterUUID = characterUUID

	var out entity.MagicItem
	if err := c.call(ctx, request{
		op:     "remote.CreateMagicItem",
		method: http.MethodPost,
		path:   "/api/data/magicitem",
		body:   item,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMagicItem(ctx context.Context, patch entity.MagicItemPatch) error {
	return c.call(ctx, request{
		op:     "remote.UpdateMagicItem",
		method: http.MethodPatch,
		path:   pathf("/api/data/magicitem/%s", patch.UUID),
		body:   patch,
	}, nil)
}

func (c *Client) DeleteMagicItem(ctx context.Context, itemUUID string) error {
	return c.call(ctx, request{
		op:     "remote.DeleteMagicItem",
		method: http.MethodDelete,
		path:   pathf("/api/data/magicitem/%s", itemUUID),
	}, nil)
}

// MagicItemHistory returns the item's origin followed by its trades and edits.
func (c *Client) MagicItemHistory(ctx context.Context, itemUUID string) ([]entity.ItemEvent, error) {
	var out entity.ItemHistory
	if err := c.call(ctx, request{
		op:     "remote.MagicItemHistory",
		method: http.MethodGet,
		path:   pathf("/api/data/magicitem/events/%s", itemUUID),
	}, &out); err != nil {
		return nil, err
	}
	return out.Flatten(), nil
}

func (c *Client) ListConsumables(ctx context.Context, characterUUID string) ([]entity.Consumable, error) {
	var out []entity.Consumable
	err := c.call(ctx, request{
		op:     "remote.ListConsumables",
		method: http.MethodGet,
		path:   "/api/data/consumable",
		query:  map[string][]string{"character": {characterUUID}},
	}, &out)
	return out, err
}

func (c *Client) CreateConsumable(ctx context.Context, characterUUID string, item entity.Consumable) (*entity.Consumable, error) {
	item.UUID = ""
	item.CharacterUUID = characterUUID

	var out entity.Consumable
	if err := c.call(ctx, request{
		op:     "remote.CreateConsumable",
		method: http.MethodPost,
		path:   "/api/data/consumable",
		body:   item,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateConsumable(ctx context.Context, patch entity.ConsumablePatch) error {
	return c.call(ctx, request{
		op:     "remote.UpdateConsumable",
		method: http.MethodPatch,
		path:   pathf("/api/data/consumable/%s", patch.UUID),
		body:   patch,
	}, nil)
}

func (c *Client) DeleteConsumable(ctx context.Context, itemUUID string) error {
	return c.call(ctx, request{
		op:     "remote.DeleteConsumable",
		method: http.MethodDelete,
		path:   pathf("/api/data/consumable/%s", itemUUID),
	}, nil)
}

// OwnAdverts lists the trading post adverts of the logged-in user.
func (c *Client) OwnAdverts(ctx context.Context) ([]entity.Advert, error) {
	var out []entity.Advert
	err := c.call(ctx, request{
		op:     "remote.OwnAdverts",
		method: http.MethodGet,
		path:   "/api/data/magicitem/faesuggestion/",
		query:  map[string][]string{"own": {"true"}},
	}, &out)
	return out, err
}

func (c *Client) GetAdvert(ctx context.Context, advertUUID string) (*entity.Advert, error) {
	var out entity.Advert
	if err := c.call(ctx, request{
		op:     "remote.GetAdvert",
		method: http.MethodGet,
		path:   pathf("/api/data/magicitem/faesuggestion/%s", advertUUID),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateAdvert(ctx context.Context, req entity.AdvertRequest) (*entity.Advert, error) {
	var out entity.Advert
	if err := c.call(ctx, request{
		op:     "remote.CreateAdvert",
		method: http.MethodPost,
		path:   "/api/data/magicitem/faesuggestion",
		body:   req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAdvert(ctx context.Context, advertUUID string) error {
	return c.call(ctx, request{
		op:     "remote.DeleteAdvert",
		method: http.MethodDelete,
		path:   pathf("/api/data/magicitem/faesuggestion/%s", advertUUID),
	}, nil)
}
