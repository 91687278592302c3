package ledger

import "github.com/krisalay/campaign-cache/types"

// Query keys of every cached collection and entity.

func EventsKey(characterUUID string) types.QueryKey {
	return types.Key("events", "all", "character", characterUUID)
}

func CharacterKey(characterUUID string) types.QueryKey {
	return types.Key("character", characterUUID)
}

func MagicItemsKey(characterUUID string) types.QueryKey {
	return types.Key("items", "magic", "character", characterUUID)
}

func MagicItemKey(itemUUID string) types.QueryKey {
	return types.Key("items", "magic", "individual", itemUUID)
}

func MagicItemHistoryKey(itemUUID string) types.QueryKey {
	return types.Key("items", "history", "individual", itemUUID)
}

func ConsumablesKey(characterUUID string) types.QueryKey {
	return types.Key("items", "consumable", "character", characterUUID)
}

func OwnAdvertsKey() types.QueryKey {
	return types.Key("tradingpost", "adverts", "own")
}

func AdvertKey(advertUUID string) types.QueryKey {
	return types.Key("tradingpost", "advert", advertUUID)
}

func DMRewardsKey(dmUUID string) types.QueryKey {
	return types.Key("dm", "rewards", dmUUID)
}

// Prefixes matching every cached event list and every character summary.
var (
	allEvents     = types.Key("events")
	allCharacters = types.Key("character")
)
