package entity

// Rarity of a magic item or consumable.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityVeryRare  Rarity = "veryrare"
	RarityLegendary Rarity = "legendary"
)

// Display colours per rarity.
const (
	ColourCommon    = "#696969"
	ColourUncommon  = "#006400"
	ColourRare      = "#0000FF"
	ColourVeryRare  = "#4B0082"
	ColourLegendary = "#FF8C00"
	ColourUnknown   = "#A9A9A9"
)

// Text is the human label of r.
func (r Rarity) Text() string {
	switch r {
	case RarityLegendary:
		return "Legendary"
	case RarityVeryRare:
		return "Very rare"
	case RarityRare:
		return "Rare"
	case RarityUncommon:
		return "Uncommon"
	case RarityCommon:
		return "Common"
	}
	return "Unknown"
}

// Colour is the display colour of r.
func (r Rarity) Colour() string {
	switch r {
	case RarityLegendary:
		return ColourLegendary
	case RarityVeryRare:
		return ColourVeryRare
	case RarityRare:
		return ColourRare
	case RarityUncommon:
		return ColourUncommon
	case RarityCommon:
		return ColourCommon
	}
	return ColourUnknown
}

type MagicItem struct {
	UUID          string `json:"uuid,omitempty"`
	CharacterUUID string `json:"character_uuid,omitempty"`
	Name          string `json:"name" validate:"required,max=256"`
	Rarity        Rarity `json:"rarity" validate:"omitempty,oneof=common uncommon rare veryrare legendary"`
	Attunement    bool   `json:"attunement"`
	Equipped      bool   `json:"equipped"`
	Description   string `json:"description,omitempty"`
	Flavour       string `json:"flavour,omitempty"`
	Market        bool   `json:"market,omitempty"`
}

func (m MagicItem) IsEquipped() bool { return m.Equipped }

// MagicItemPatch is a partial update. Nil fields are left unchanged.
type MagicItemPatch struct {
	UUID        string  `json:"uuid" validate:"required"`
	Name        *string `json:"name,omitempty" validate:"omitempty,max=256"`
	Rarity      *Rarity `json:"rarity,omitempty" validate:"omitempty,oneof=common uncommon rare veryrare legendary"`
	Attunement  *bool   `json:"attunement,omitempty"`
	Equipped    *bool   `json:"equipped,omitempty"`
	Description *string `json:"description,omitempty"`
	Flavour     *string `json:"flavour,omitempty"`
}

// Apply returns m with the patch applied.
func (p MagicItemPatch) Apply(m MagicItem) MagicItem {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Rarity != nil {
		m.Rarity = *p.Rarity
	}
	if p.Attunement != nil {
		m.Attunement = *p.Attunement
	}
	if p.Equipped != nil {
		m.Equipped = *p.Equipped
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Flavour != nil {
		m.Flavour = *p.Flavour
	}
	return m
}

type Consumable struct {
	UUID          string `json:"uuid,omitempty"`
	CharacterUUID string `json:"character_uuid,omitempty"`
	Name          string `json:"name" validate:"required,max=256"`
	Type          string `json:"type,omitempty"`
	Rarity        Rarity `json:"rarity" validate:"omitempty,oneof=common uncommon rare veryrare legendary"`
	Charges       int    `json:"charges" validate:"gte=0"`
	Equipped      bool   `json:"equipped"`
	Description   string `json:"description,omitempty"`
}

func (c Consumable) IsEquipped() bool { return c.Equipped }

// ConsumablePatch is a partial update. Nil fields are left unchanged.
type ConsumablePatch struct {
	UUID        string  `json:"uuid" validate:"required"`
	Name        *string `json:"name,omitempty" validate:"omitempty,max=256"`
	Type        *string `json:"type,omitempty"`
	Rarity      *Rarity `json:"rarity,omitempty" validate:"omitempty,oneof=common uncommon rare veryrare legendary"`
	Charges     *int    `json:"charges,omitempty" validate:"omitempty,gte=0"`
	Equipped    *bool   `json:"equipped,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Apply returns c with the patch applied.
func (p ConsumablePatch) Apply(c Consumable) Consumable {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Rarity != nil {
		c.Rarity = *p.Rarity
	}
	if p.Charges != nil {
		c.Charges = *p.Charges
	}
	if p.Equipped != nil {
		c.Equipped = *p.Equipped
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	return c
}

// Equippable is implemented by items that can be worn.
type Equippable interface {
	IsEquipped() bool
}

// NumberEquipped counts the equipped items.
func NumberEquipped[T Equippable](items []T) int {
	n := 0
	for _, it := range items {
		if it.IsEquipped() {
			n++
		}
	}
	return n
}

// ItemEventType is the kind of an entry in an item's history.
type ItemEventType string

const (
	ItemEventTrade    ItemEventType = "trade"
	ItemEventManual   ItemEventType = "manual"
	ItemEventEdit     ItemEventType = "edit"
	ItemEventGame     ItemEventType = "game"
	ItemEventDMReward ItemEventType = "dm_reward"
)

type ItemEvent struct {
	UUID          string        `json:"uuid"`
	Datetime      string        `json:"datetime"`
	EventType     ItemEventType `json:"event_type"`
	Name          string        `json:"name"`
	CharacterName string        `json:"character_name"`
	Details       string        `json:"details"`
	RecipientName string        `json:"recipient_name,omitempty"`
	ExchangedItem string        `json:"exchanged_item,omitempty"`
	DMName        string        `json:"dm_name,omitempty"`
	Module        string        `json:"module,omitempty"`
}

// ItemHistory is the answer of the item history endpoint.
type ItemHistory struct {
	Origin *ItemEvent  `json:"origin"`
	Trades []ItemEvent `json:"trades"`
	Edits  []ItemEvent `json:"edits"`
}

// Flatten lists the origin first, then trades, then edits.
func (h ItemHistory) Flatten() []ItemEvent {
	out := make([]ItemEvent, 0, 1+len(h.Trades)+len(h.Edits))
	if h.Origin != nil {
		out = append(out, *h.Origin)
	}
	out = append(out, h.Trades...)
	return append(out, h.Edits...)
}
