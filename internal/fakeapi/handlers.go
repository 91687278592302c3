package fakeapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/krisalay/campaign-cache/entity"
)

var (
	createKinds = map[string]entity.EventType{
		"game":         entity.EventGame,
		"mundanetrade": entity.EventMundane,
		"catchingup":   entity.EventCatchingUp,
		"spellbook":    entity.EventSpellbook,
		"freeform":     entity.EventFreeform,
	}
	updateKinds = map[string]entity.EventType{
		"game":             entity.EventGame,
		"mundanetrade":     entity.EventMundane,
		"catchingup":       entity.EventCatchingUp,
		"spellbook_update": entity.EventSpellbook,
		"freeform":         entity.EventFreeform,
		"dm_reward":        entity.EventDMReward,
	}
	deleteKinds = map[string]entity.EventType{
		"mundanetrade": entity.EventMundane,
		"catchingup":   entity.EventCatchingUp,
		"spellbook":    entity.EventSpellbook,
		"freeform":     entity.EventFreeform,
		"dm_reward":    entity.EventDMReward,
	}
)

func (s *Server) register() {
	e := s.e

	e.GET("/api/data/character_events/:uuid", s.listEvents)
	for seg, kind := range createKinds {
		e.POST("/api/data/"+seg, s.createEvent(kind))
	}
	for seg, kind := range updateKinds {
		e.PATCH("/api/data/"+seg+"/:uuid", s.updateEvent(kind))
	}
	for seg, kind := range deleteKinds {
		e.DELETE("/api/data/"+seg+"/:uuid", s.deleteEvent(kind))
	}
	e.POST("/api/data/game/:uuid/remove_character", s.removeCharacter)

	e.GET("/api/data/dm_reward", s.listDMRewards)
	e.POST("/api/data/dm_reward", s.createDMReward)

	e.GET("/api/data/characters/:uuid", s.getCharacter)

	e.GET("/api/data/magicitem", s.listMagicItems)
	e.POST("/api/data/magicitem", s.createMagicItem)
	e.GET("/api/data/magicitem/:uuid", s.getMagicItem)
	e.PATCH("/api/data/magicitem/:uuid", s.updateMagicItem)
	e.DELETE("/api/data/magicitem/:uuid", s.deleteMagicItem)
	e.GET("/api/data/magicitem/events/:uuid", s.magicItemHistory)

	e.GET("/api/data/consumable", s.listConsumables)
	e.POST("/api/data/consumable", s.createConsumable)
	e.PATCH("/api/data/consumable/:uuid", s.updateConsumable)
	e.DELETE("/api/data/consumable/:uuid", s.deleteConsumable)

	e.GET("/api/data/magicitem/faesuggestion/", s.ownAdverts)
	e.POST("/api/data/magicitem/faesuggestion", s.createAdvert)
	e.GET("/api/data/magicitem/faesuggestion/:uuid", s.getAdvert)
	e.DELETE("/api/data/magicitem/faesuggestion/:uuid", s.deleteAdvert)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func notFound() error {
	return echo.NewHTTPError(http.StatusNotFound, "not found")
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}

// ---------------------------------------------------------------- events

func (s *Server) listEvents(c echo.Context) error {
	char := c.Param("uuid")

	s.mu.Lock()
	out := make([]map[string]any, 0)
	for _, id := range s.eventOrder {
		ev := s.events[id]
		if ev["character_uuid"] == char || slices.Contains(s.parties[id], char) {
			out = append(out, ev)
		}
	}
	s.mu.Unlock()

	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) insertEventLocked(ev map[string]any) map[string]any {
	id := uuid.NewString()
	ev["uuid"] = id
	ev["datetime"] = now()
	ev["editable"] = true

	s.events[id] = ev
	s.eventOrder = append(s.eventOrder, id)
	if ev["event_type"] == string(entity.EventGame) {
		if char, _ := ev["character_uuid"].(string); char != "" {
			s.parties[id] = []string{char}
		}
	}
	return ev
}

func (s *Server) createEvent(kind entity.EventType) echo.HandlerFunc {
	return func(c echo.Context) error {
		var ev map[string]any
		if err := readJSON(c, &ev); err != nil {
			return err
		}
		ev["event_type"] = string(kind)

		s.mu.Lock()
		ev = s.insertEventLocked(ev)
		s.mu.Unlock()

		return writeJSON(c, http.StatusCreated, ev)
	}
}

func (s *Server) updateEvent(kind entity.EventType) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch map[string]any
		if err := readJSON(c, &patch); err != nil {
			return err
		}
		id := c.Param("uuid")

		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.events[id]
		if !ok || cur["event_type"] != string(kind) {
			return notFound()
		}

		next := make(map[string]any, len(cur)+len(patch))
		for k, v := range cur {
			next[k] = v
		}
		for k, v := range patch {
			if k == "uuid" || k == "event_type" {
				continue
			}
			next[k] = v
		}
		s.events[id] = next
		return writeJSON(c, http.StatusOK, next)
	}
}

func (s *Server) deleteEventLocked(id string) {
	delete(s.events, id)
	delete(s.parties, id)
	s.eventOrder = slices.DeleteFunc(s.eventOrder, func(v string) bool { return v == id })
}

func (s *Server) deleteEvent(kind entity.EventType) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("uuid")

		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.events[id]
		if !ok || cur["event_type"] != string(kind) {
			return notFound()
		}
		s.deleteEventLocked(id)
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *Server) removeCharacter(c echo.Context) error {
	var body struct {
		CharacterUUID string `json:"character_uuid"`
	}
	if err := readJSON(c, &body); err != nil {
		return err
	}
	id := c.Param("uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	party, ok := s.parties[id]
	if !ok || !slices.Contains(party, body.CharacterUUID) {
		return notFound()
	}
	party = slices.DeleteFunc(slices.Clone(party), func(v string) bool { return v == body.CharacterUUID })
	if len(party) == 0 {
		s.deleteEventLocked(id)
	} else {
		s.parties[id] = party
		if s.events[id]["character_uuid"] == body.CharacterUUID {
			ev := s.events[id]
			next := make(map[string]any, len(ev))
			for k, v := range ev {
				next[k] = v
			}
			next["character_uuid"] = party[0]
			s.events[id] = next
		}
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) listDMRewards(c echo.Context) error {
	dm := c.QueryParam("dm")

	s.mu.Lock()
	out := make([]map[string]any, 0)
	for _, id := range s.eventOrder {
		ev := s.events[id]
		if ev["event_type"] == string(entity.EventDMReward) && ev["dm"] == dm {
			out = append(out, ev)
		}
	}
	s.mu.Unlock()

	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) createDMReward(c echo.Context) error {
	var body map[string]any
	if err := readJSON(c, &body); err != nil {
		return err
	}
	ev := map[string]any{
		"event_type": string(entity.EventDMReward),
		"dm":         body["dm"],
		"name":       body["name"],
		"hours":      body["hours"],
		"gold":       body["gold"],
		"downtime":   body["downtime"],
	}
	if char, _ := body["charItems"].(string); char != "" {
		ev["character_uuid"] = char
	}

	s.mu.Lock()
	ev = s.insertEventLocked(ev)
	s.mu.Unlock()

	return writeJSON(c, http.StatusCreated, ev)
}

// ---------------------------------------------------------------- characters

// AddCharacter seeds a character. Gold and downtime are the starting values;
// events are added on top when the summary is served.
func (s *Server) AddCharacter(ch entity.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters[ch.UUID] = ch
}

func (s *Server) getCharacter(c echo.Context) error {
	id := c.Param("uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.characters[id]
	if !ok {
		return notFound()
	}
	for _, evID := range s.eventOrder {
		ev := s.events[evID]
		if ev["character_uuid"] != id && !slices.Contains(s.parties[evID], id) {
			continue
		}
		ch.Gold += number(ev["gold_change"]) + number(ev["gold"])
		ch.Downtime += number(ev["downtime_change"]) + number(ev["downtime"])
		ch.Level += int(number(ev["levels"]))
	}
	return writeJSON(c, http.StatusOK, ch)
}

// AddEvent seeds an event for a character and returns its identifier.
func (s *Server) AddEvent(characterUUID string, ev entity.Event) string {
	data, _ := sonic.Marshal(ev)
	var m map[string]any
	_ = sonic.Unmarshal(data, &m)
	m["character_uuid"] = characterUUID
	m["event_type"] = string(ev.Kind())

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertEventLocked(m)["uuid"].(string)
}

// EventIDs lists the identifiers of a character's events, oldest first.
func (s *Server) EventIDs(characterUUID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, id := range s.eventOrder {
		ev := s.events[id]
		if ev["character_uuid"] == characterUUID || slices.Contains(s.parties[id], characterUUID) {
			out = append(out, id)
		}
	}
	return out
}

// ---------------------------------------------------------------- magic items

// AddMagicItem seeds a magic item and returns its identifier.
func (s *Server) AddMagicItem(item entity.MagicItem) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertMagicItemLocked(item).UUID
}

func (s *Server) insertMagicItemLocked(item entity.MagicItem) entity.MagicItem {
	item.UUID = uuid.NewString()
	s.magicItems[item.UUID] = item
	s.itemOrder = append(s.itemOrder, item.UUID)
	s.history[item.UUID] = entity.ItemHistory{
		Origin: &entity.ItemEvent{
			UUID:      uuid.NewString(),
			Datetime:  now(),
			EventType: entity.ItemEventManual,
			Name:      item.Name,
			Details:   "Item created",
		},
	}
	return item
}

func (s *Server) listMagicItems(c echo.Context) error {
	char := c.QueryParam("character")

	s.mu.Lock()
	out := make([]entity.MagicItem, 0)
	for _, id := range s.itemOrder {
		if it := s.magicItems[id]; it.CharacterUUID == char {
			out = append(out, it)
		}
	}
	s.mu.Unlock()

	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) getMagicItem(c echo.Context) error {
	s.mu.Lock()
	it, ok := s.magicItems[c.Param("uuid")]
	s.mu.Unlock()
	if !ok {
		return notFound()
	}
	return writeJSON(c, http.StatusOK, it)
}

func (s *Server) createMagicItem(c echo.Context) error {
	var item entity.MagicItem
	if err := readJSON(c, &item); err != nil {
		return err
	}

	s.mu.Lock()
	item = s.insertMagicItemLocked(item)
	s.mu.Unlock()

	return writeJSON(c, http.StatusCreated, item)
}

func (s *Server) updateMagicItem(c echo.Context) error {
	var patch entity.MagicItemPatch
	if err := readJSON(c, &patch); err != nil {
		return err
	}
	id := c.Param("uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.magicItems[id]
	if !ok {
		return notFound()
	}
	next := patch.Apply(cur)
	s.magicItems[id] = next

	h := s.history[id]
	h.Edits = append(slices.Clone(h.Edits), entity.ItemEvent{
		UUID:      uuid.NewString(),
		Datetime:  now(),
		EventType: entity.ItemEventEdit,
		Name:      next.Name,
		Details:   "Item edited",
	})
	s.history[id] = h
	return writeJSON(c, http.StatusOK, next)
}

func (s *Server) deleteMagicItem(c echo.Context) error {
	id := c.Param("uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.magicItems[id]; !ok {
		return notFound()
	}
	delete(s.magicItems, id)
	delete(s.history, id)
	s.itemOrder = slices.DeleteFunc(s.itemOrder, func(v string) bool { return v == id })
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) magicItemHistory(c echo.Context) error {
	s.mu.Lock()
	h, ok := s.history[c.Param("uuid")]
	s.mu.Unlock()
	if !ok {
		return notFound()
	}
	if h.Trades == nil {
		h.Trades = []entity.ItemEvent{}
	}
	if h.Edits == nil {
		h.Edits = []entity.ItemEvent{}
	}
	return writeJSON(c, http.StatusOK, h)
}

// ---------------------------------------------------------------- consumables

// AddConsumable seeds a consumable and returns its identifier.
func (s *Server) AddConsumable(item entity.Consumable) string {
	item.UUID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumables[item.UUID] = item
	s.consOrder = append(s.consOrder, item.UUID)
	return item.UUID
}

// Consumable returns the server copy of a consumable.
func (s *Server) Consumable(id string) (entity.Consumable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.consumables[id]
	return it, ok
}

func (s *Server) listConsumables(c echo.Context) error {
	char := c.QueryParam("character")

	s.mu.Lock()
	out := make([]entity.Consumable, 0)
	for _, id := range s.consOrder {
		if it := s.consumables[id]; it.CharacterUUID == char {
			out = append(out, it)
		}
	}
	s.mu.Unlock()

	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) createConsumable(c echo.Context) error {
	var item entity.Consumable
	if err := readJSON(c, &item); err != nil {
		return err
	}
	item.UUID = uuid.NewString()

	s.mu.Lock()
	s.consumables[item.UUID] = item
	s.consOrder = append(s.consOrder, item.UUID)
	s.mu.Unlock()

	return writeJSON(c, http.StatusCreated, item)
}

func (s *Server) updateConsumable(c echo.Context) error {
	var patch entity.ConsumablePatch
	if err := readJSON(c, &patch); err != nil {
		return err
	}
	id := c.Param("uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.consumables[id]
	if !ok {
		return notFound()
	}
	next := patch.Apply(cur)
	s.consumables[id] = next
	return writeJSON(c, http.StatusOK, next)
}

func (s *Server) deleteConsumable(c echo.Context) error {
	id := c.Param("uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consumables[id]; !ok {
		return notFound()
	}
	delete(s.consumables, id)
	s.consOrder = slices.DeleteFunc(s.consOrder, func(v string) bool { return v == id })
	return c.NoContent(http.StatusNoContent)
}

// ---------------------------------------------------------------- adverts

func (s *Server) ownAdverts(c echo.Context) error {
	s.mu.Lock()
	out := make([]entity.Advert, 0, len(s.advertOrder))
	for _, id := range s.advertOrder {
		out = append(out, s.adverts[id])
	}
	s.mu.Unlock()

	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) getAdvert(c echo.Context) error {
	s.mu.Lock()
	ad, ok := s.adverts[c.Param("uuid")]
	s.mu.Unlock()
	if !ok {
		return notFound()
	}
	return writeJSON(c, http.StatusOK, ad)
}

func (s *Server) createAdvert(c echo.Context) error {
	var req entity.AdvertRequest
	if err := readJSON(c, &req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.magicItems[req.ItemUUID]
	if !ok {
		return notFound()
	}
	ad := entity.Advert{
		UUID:        uuid.NewString(),
		Datetime:    now(),
		Description: req.Description,
		Item:        item,
	}
	s.adverts[ad.UUID] = ad
	s.advertOrder = append(s.advertOrder, ad.UUID)
	return writeJSON(c, http.StatusCreated, ad)
}

func (s *Server) deleteAdvert(c echo.Context) error {
	id := c.Param("uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.adverts[id]; !ok {
		return notFound()
	}
	delete(s.adverts, id)
	s.advertOrder = slices.DeleteFunc(s.advertOrder, func(v string) bool { return v == id })
	return c.NoContent(http.StatusNoContent)
}
