package ledger

import (
	"context"

	"github.com/krisalay/campaign-cache/entity"
	"github.com/krisalay/campaign-cache/mutation"
	"github.com/krisalay/campaign-cache/types"
)

type magicItemInput struct {
	character string
	item      entity.MagicItem
}

type magicItemPatchInput struct {
	character string
	patch     entity.MagicItemPatch
}

type consumableInput struct {
	character string
	item      entity.Consumable
}

type consumablePatchInput struct {
	character string
	patch     entity.ConsumablePatch
}

// idInput addresses one entity inside the list owned by owner.
type idInput struct {
	owner string
	id    string
}

func (c *Client) registerItems(coord *mutation.Coordinator) {
	c.createMagicItem = mutation.New(coord, mutation.Definition[magicItemInput, *entity.MagicItem]{
		Name: "createMagicItem",
		Key:  func(in magicItemInput) types.QueryKey { return MagicItemsKey(in.character) },
		Optimistic: func(prev any, exists bool, in magicItemInput) (any, bool, error) {
			item := in.item
			item.UUID = c.newID()
			item.CharacterUUID = in.character
			return appendTo(prev, exists, item)
		},
		Mutate: func(ctx context.Context, in magicItemInput) (*entity.MagicItem, error) {
			return c.api.CreateMagicItem(ctx, in.character, in.item)
		},
	})

	c.updateMagicItem = mutation.New(coord, mutation.Definition[magicItemPatchInput, struct{}]{
		Name: "updateMagicItem",
		Key:  func(in magicItemPatchInput) types.QueryKey { return MagicItemsKey(in.character) },
		Optimistic: func(prev any, exists bool, in magicItemPatchInput) (any, bool, error) {
			return replaceIn(prev, exists, magicItemID, in.patch.UUID, in.patch.Apply)
		},
		Mutate: func(ctx context.Context, in magicItemPatchInput) (struct{}, error) {
			return struct{}{}, c.api.UpdateMagicItem(ctx, in.patch)
		},
		Invalidates: func(in magicItemPatchInput) []types.QueryKey {
			return []types.QueryKey{MagicItemKey(in.patch.UUID), MagicItemHistoryKey(in.patch.UUID)}
		},
	})

	c.updateMagicItemDetail = mutation.New(coord, mutation.Definition[magicItemPatchInput, struct{}]{
		Name: "updateMagicItemDetail",
		Key:  func(in magicItemPatchInput) types.QueryKey { return MagicItemKey(in.patch.UUID) },
		Optimistic: func(prev any, exists bool, in magicItemPatchInput) (any, bool, error) {
			item, ok := prev.(entity.MagicItem)
			if !exists || !ok {
				return nil, false, nil
			}
			return in.patch.Apply(item), true, nil
		},
		Mutate: func(ctx context.Context, in magicItemPatchInput) (struct{}, error) {
			return struct{}{}, c.api.UpdateMagicItem(ctx, in.patch)
		},
		Invalidates: func(in magicItemPatchInput) []types.QueryKey {
			keys := []types.QueryKey{MagicItemHistoryKey(in.patch.UUID)}
			if in.character != "" {
				keys = append(keys, MagicItemsKey(in.character))
			}
			return keys
		},
	})

	c.deleteMagicItem = mutation.New(coord, mutation.Definition[idInput, struct{}]{
		Name: "deleteMagicItem",
		Key:  func(in idInput) types.QueryKey { return MagicItemsKey(in.owner) },
		Optimistic: func(prev any, exists bool, in idInput) (any, bool, error) {
			return removeFrom(prev, exists, magicItemID, in.id)
		},
		Mutate: func(ctx context.Context, in idInput) (struct{}, error) {
			return struct{}{}, c.api.DeleteMagicItem(ctx, in.id)
		},
		TreatNotFoundAsDone: true,
	})

	c.createConsumable = mutation.New(coord, mutation.Definition[consumableInput, *entity.Consumable]{
		Name: "createConsumable",
		Key:  func(in consumableInput) types.QueryKey { return ConsumablesKey(in.character) },
		Optimistic: func(prev any, exists bool, in consumableInput) (any, bool, error) {
			item := in.item
			item.UUID = c.newID()
			item.CharacterUUID = in.character
			return appendTo(prev, exists, item)
		},
		Mutate: func(ctx context.Context, in consumableInput) (*entity.Consumable, error) {
			return c.api.CreateConsumable(ctx, in.character, in.item)
		},
	})

	c.updateConsumable = mutation.New(coord, mutation.Definition[consumablePatchInput, struct{}]{
		Name: "updateConsumable",
		Key:  func(in consumablePatchInput) types.QueryKey { return ConsumablesKey(in.character) },
		Optimistic: func(prev any, exists bool, in consumablePatchInput) (any, bool, error) {
			return replaceIn(prev, exists, consumableID, in.patch.UUID, in.patch.Apply)
		},
		Mutate: func(ctx context.Context, in consumablePatchInput) (struct{}, error) {
			return struct{}{}, c.api.UpdateConsumable(ctx, in.patch)
		},
	})

	c.deleteConsumable = mutation.New(coord, mutation.Definition[idInput, struct{}]{
		Name: "deleteConsumable",
		Key:  func(in idInput) types.QueryKey { return ConsumablesKey(in.owner) },
		Optimistic: func(prev any, exists bool, in idInput) (any, bool, error) {
			return removeFrom(prev, exists, consumableID, in.id)
		},
		Mutate: func(ctx context.Context, in idInput) (struct{}, error) {
			return struct{}{}, c.api.DeleteConsumable(ctx, in.id)
		},
		TreatNotFoundAsDone: true,
	})
}

func (c *Client) MagicItems(ctx context.Context, characterUUID string) ([]entity.MagicItem, error) {
	return fetch[[]entity.MagicItem](ctx, c.cache, MagicItemsKey(characterUUID))
}

func (c *Client) WatchMagicItems(characterUUID string, fn func([]entity.MagicItem, types.CacheEntry)) func() {
	return watch(c.cache, MagicItemsKey(characterUUID), fn)
}

// MagicItem returns one magic item by identifier.
func (c *Client) MagicItem(ctx context.Context, itemUUID string) (entity.MagicItem, error) {
	return fetch[entity.MagicItem](ctx, c.cache, MagicItemKey(itemUUID))
}

// MagicItemHistory returns where an item came from, then its trades and edits.
func (c *Client) MagicItemHistory(ctx context.Context, itemUUID string) ([]entity.ItemEvent, error) {
	return fetch[[]entity.ItemEvent](ctx, c.cache, MagicItemHistoryKey(itemUUID))
}

func (c *Client) CreateMagicItem(ctx context.Context, characterUUID string, item entity.MagicItem) (*entity.MagicItem, error) {
	if err := c.check("ledger.CreateMagicItem", item); err != nil {
		return nil, err
	}
	return c.createMagicItem.Run(ctx, magicItemInput{character: characterUUID, item: item})
}

// UpdateMagicItem patches an item of the character's list.
func (c *Client) UpdateMagicItem(ctx context.Context, characterUUID string, patch entity.MagicItemPatch) error {
	if err := c.check("ledger.UpdateMagicItem", patch); err != nil {
		return err
	}
	_, err := c.updateMagicItem.Run(ctx, magicItemPatchInput{character: characterUUID, patch: patch})
	return err
}

/*
UpdateMagicItemDetail patches the item shown on its own page. When
characterUUID is set, the owner's list is reloaded afterwards too.
*/
func (c *Client) UpdateMagicItemDetail(ctx context.Context, characterUUID string, patch entity.MagicItemPatch) error {
	if err := c.check("ledger.UpdateMagicItemDetail", patch); err != nil {
		return err
	}
	_, err := c.updateMagicItemDetail.Run(ctx, magicItemPatchInput{character: characterUUID, patch: patch})
	return err
}

func (c *Client) DeleteMagicItem(ctx context.Context, characterUUID, itemUUID string) error {
	_, err := c.deleteMagicItem.Run(ctx, idInput{owner: characterUUID, id: itemUUID})
	return err
}

func (c *Client) Consumables(ctx context.Context, characterUUID string) ([]entity.Consumable, error) {
	return fetch[[]entity.Consumable](ctx, c.cache, ConsumablesKey(characterUUID))
}

func (c *Client) WatchConsumables(characterUUID string, fn func([]entity.Consumable, types.CacheEntry)) func() {
	return watch(c.cache, ConsumablesKey(characterUUID), fn)
}

func (c *Client) CreateConsumable(ctx context.Context, characterUUID string, item entity.Consumable) (*entity.Consumable, error) {
	if err := c.check("ledger.CreateConsumable", item); err != nil {
		return nil, err
	}
	return c.createConsumable.Run(ctx, consumableInput{character: characterUUID, item: item})
}

// UpdateConsumable patches a consumable. Updates of the same character's
// consumables are applied in call order.
func (c *Client) UpdateConsumable(ctx context.Context, characterUUID string, patch entity.ConsumablePatch) error {
	if err := c.check("ledger.UpdateConsumable", patch); err != nil {
		return err
	}
	_, err := c.updateConsumable.Run(ctx, consumablePatchInput{character: characterUUID, patch: patch})
	return err
}

func (c *Client) DeleteConsumable(ctx context.Context, characterUUID, itemUUID string) error {
	_, err := c.deleteConsumable.Run(ctx, idInput{owner: characterUUID, id: itemUUID})
	return err
}
