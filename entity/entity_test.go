package entity_test

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/campaign-cache/entity"
	apperrors "github.com/krisalay/campaign-cache/errors"
)

func TestDecodeEventsPicksConcreteType(t *testing.T) {
	data := []byte(`[
		{"uuid":"e1","character_uuid":"c1","event_type":"dt_freeform","editable":true,"details":"Healing potion used","gold_change":-50,"downtime_change":0},
		{"uuid":"e2","character_uuid":"c1","event_type":"game","name":"Into the Mists","hours":4,"levels":1,"magicitems":[{"name":"Cloak","rarity":"rare"}]},
		{"uuid":"e3","event_type":"dm_reward","dm":"d1","name":"Levelling","hours":10}
	]`)

	events, skipped, err := entity.DecodeEvents(data)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, events, 3)

	ff, ok := events[0].(*entity.FreeformEvent)
	require.True(t, ok)
	assert.Equal(t, "Healing potion used", ff.Details)
	assert.Equal(t, -50.0, ff.GoldChange)

	game, ok := events[1].(*entity.GameEvent)
	require.True(t, ok)
	assert.Equal(t, "Into the Mists", game.Name)
	assert.Equal(t, entity.RarityRare, game.MagicItems[0].Rarity)

	reward, ok := events[2].(*entity.DMRewardEvent)
	require.True(t, ok)
	assert.Equal(t, 10.0, reward.Hours)
	assert.Equal(t, entity.EventDMReward, reward.Kind())
}

func TestDecodeEventRejectsUnknownKind(t *testing.T) {
	_, err := entity.DecodeEvent([]byte(`{"uuid":"e1","event_type":"dt_crafting"}`))
	assert.True(t, apperrors.IsUnsupported(err))
}

func TestDecodeEventsSkipsUnknownKinds(t *testing.T) {
	data := []byte(`[
		{"uuid":"e1","event_type":"dt_crafting"},
		{"uuid":"e2","event_type":"dt_catchingup","details":"Caught up"}
	]`)

	events, skipped, err := entity.DecodeEvents(data)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e2", events[0].Header().UUID)
	assert.Equal(t, []entity.EventType{"dt_crafting"}, skipped)
}

func TestDecodeEventsFailsOnMalformedEvent(t *testing.T) {
	_, _, err := entity.DecodeEvents([]byte(`[{"uuid":"e1","event_type":"game","hours":"four"}]`))
	assert.Error(t, err)
}

func TestWithIDCopies(t *testing.T) {
	orig := &entity.FreeformEvent{DowntimeActivity: entity.DowntimeActivity{Details: "x"}}

	temp := entity.WithID(orig, "tmp-1")

	assert.Empty(t, orig.UUID)
	assert.Equal(t, "tmp-1", temp.Header().UUID)
	assert.Equal(t, entity.EventFreeform, temp.Header().EventType)
	assert.Equal(t, "x", temp.(*entity.FreeformEvent).Details)
}

func TestEncodedEventCarriesDiscriminant(t *testing.T) {
	ev := entity.WithHeader(&entity.MundaneTradeEvent{}, entity.EventHeader{CharacterUUID: "c1"})

	data, err := sonic.Marshal(ev)
	require.NoError(t, err)

	back, err := entity.DecodeEvent(data)
	require.NoError(t, err)
	assert.IsType(t, &entity.MundaneTradeEvent{}, back)
	assert.Equal(t, "c1", back.Header().CharacterUUID)
}

func TestFindEvent(t *testing.T) {
	events := []entity.Event{
		entity.WithID(&entity.BastionEvent{}, "a"),
		entity.WithID(&entity.CatchingUpEvent{}, "b"),
	}

	assert.Equal(t, 1, entity.FindEvent(events, "b"))
	assert.Equal(t, -1, entity.FindEvent(events, "z"))
}

func TestRarityTextAndColour(t *testing.T) {
	assert.Equal(t, "Very rare", entity.RarityVeryRare.Text())
	assert.Equal(t, entity.ColourLegendary, entity.RarityLegendary.Colour())
	assert.Equal(t, "Unknown", entity.Rarity("artifact").Text())
	assert.Equal(t, entity.ColourUnknown, entity.Rarity("").Colour())
}

func TestPatchApplyLeavesUnsetFields(t *testing.T) {
	charges := 2
	c := entity.Consumable{UUID: "x", Name: "Potion", Charges: 3, Equipped: true}

	next := entity.ConsumablePatch{UUID: "x", Charges: &charges}.Apply(c)

	assert.Equal(t, 2, next.Charges)
	assert.Equal(t, "Potion", next.Name)
	assert.True(t, next.Equipped)
	assert.Equal(t, 3, c.Charges)

	name := "Flame Tongue"
	item := entity.MagicItemPatch{UUID: "i", Name: &name}.Apply(entity.MagicItem{UUID: "i", Name: "Sword", Attunement: true})
	assert.Equal(t, "Flame Tongue", item.Name)
	assert.True(t, item.Attunement)
}

func TestNumberEquipped(t *testing.T) {
	assert.Equal(t, 0, entity.NumberEquipped[entity.MagicItem](nil))
	assert.Equal(t, 2, entity.NumberEquipped([]entity.Consumable{
		{Equipped: true}, {Equipped: false}, {Equipped: true},
	}))
}

func TestItemHistoryFlattenOrder(t *testing.T) {
	h := entity.ItemHistory{
		Origin: &entity.ItemEvent{UUID: "o"},
		Trades: []entity.ItemEvent{{UUID: "t1"}, {UUID: "t2"}},
		Edits:  []entity.ItemEvent{{UUID: "e1"}},
	}

	var ids []string
	for _, ev := range h.Flatten() {
		ids = append(ids, ev.UUID)
	}
	assert.Equal(t, []string{"o", "t1", "t2", "e1"}, ids)
}
