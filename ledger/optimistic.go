package ledger

import (
	"slices"

	"github.com/krisalay/campaign-cache/entity"
	"github.com/krisalay/campaign-cache/mutation"
)

// Speculative list edits. Each returns a new slice and leaves prev alone:
// readers may still hold it. An uncached list is left uncached.

func appendTo[T any](prev any, exists bool, v T) (any, bool, error) {
	list, ok := prev.([]T)
	if !exists || !ok {
		return nil, false, nil
	}
	next := make([]T, 0, len(list)+1)
	next = append(next, list...)
	return append(next, v), true, nil
}

func replaceIn[T any](prev any, exists bool, id func(T) string, target string, fn func(T) T) (any, bool, error) {
	list, ok := prev.([]T)
	if !exists || !ok {
		return nil, false, nil
	}
	i := slices.IndexFunc(list, func(v T) bool { return id(v) == target })
	if i < 0 {
		return nil, false, nil
	}
	next := slices.Clone(list)
	next[i] = fn(next[i])
	return next, true, nil
}

// removeFrom fails with mutation.ErrNoop when the cached list does not hold
// target: it was deleted already.
func removeFrom[T any](prev any, exists bool, id func(T) string, target string) (any, bool, error) {
	list, ok := prev.([]T)
	if !exists || !ok {
		return nil, false, nil
	}
	i := slices.IndexFunc(list, func(v T) bool { return id(v) == target })
	if i < 0 {
		return nil, false, mutation.ErrNoop
	}
	next := make([]T, 0, len(list)-1)
	next = append(next, list[:i]...)
	return append(next, list[i+1:]...), true, nil
}

func eventID(ev entity.Event) string           { return ev.Header().UUID }
func magicItemID(it entity.MagicItem) string   { return it.UUID }
func consumableID(it entity.Consumable) string { return it.UUID }
func advertID(ad entity.Advert) string         { return ad.UUID }
func rewardID(ev entity.DMRewardEvent) string  { return ev.UUID }
