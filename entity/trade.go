package entity

// Advert is a magic item offered on the trading post.
type Advert struct {
	UUID        string    `json:"uuid,omitempty"`
	Datetime    string    `json:"datetime,omitempty"`
	Description string    `json:"description"`
	Item        MagicItem `json:"item"`
}

// AdvertRequest is the body of an advert creation.
type AdvertRequest struct {
	ItemUUID    string `json:"item_uuid" validate:"required"`
	Description string `json:"description" validate:"max=1024"`
}

// Character is the summary of a player character.
type Character struct {
	UUID     string  `json:"uuid"`
	Name     string  `json:"name"`
	Species  string  `json:"species,omitempty"`
	Level    int     `json:"level"`
	Gold     float64 `json:"gold"`
	Downtime float64 `json:"downtime"`
	DMHours  float64 `json:"dm_hours,omitempty"`
}

// DMRewardRequest claims a reward with dungeon-master service hours.
type DMRewardRequest struct {
	Name       string  `json:"name" validate:"required"`
	Hours      float64 `json:"hours" validate:"gt=0"`
	Gold       float64 `json:"gold"`
	Downtime   float64 `json:"downtime"`
	Levels     int     `json:"levels" validate:"gte=0"`
	Rarity     Rarity  `json:"rarity,omitempty"`
	CharLevels string  `json:"charLevels,omitempty"`
	CharItems  string  `json:"charItems,omitempty"`
	Item       string  `json:"item,omitempty"`
}
