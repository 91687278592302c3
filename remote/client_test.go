package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/krisalay/campaign-cache/entity"
	apperrors "github.com/krisalay/campaign-cache/errors"
	"github.com/krisalay/campaign-cache/internal/fakeapi"
	"github.com/krisalay/campaign-cache/remote"
)

func newClient(t *testing.T, opts ...remote.Option) (*remote.Client, *fakeapi.Server) {
	t.Helper()

	api := fakeapi.New(nil)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := remote.New(remote.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, opts...)
	require.NoError(t, err)
	return c, api
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := remote.New(remote.Config{BaseURL: "/api"})
	assert.Error(t, err)
}

func TestEventsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, api := newClient(t)

	created, err := c.CreateEvent(ctx, "c1", &entity.FreeformEvent{
		DowntimeActivity: entity.DowntimeActivity{Details: "Healing potion used", GoldChange: -50},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.Header().UUID)
	assert.Equal(t, 1, api.Calls(http.MethodPost, "/api/data/freeform"))

	events, err := c.ListEvents(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	ff := events[0].(*entity.FreeformEvent)
	assert.Equal(t, "Healing potion used", ff.Details)
	assert.Equal(t, "c1", ff.CharacterUUID)

	update := *ff
	update.Details = "Two potions"
	require.NoError(t, c.UpdateEvent(ctx, &update))

	events, err = c.ListEvents(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Two potions", events[0].(*entity.FreeformEvent).Details)

	require.NoError(t, c.DeleteEvent(ctx, "c1", events[0]))
	events, err = c.ListEvents(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSpellbookUsesItsOwnUpdatePath(t *testing.T) {
	ctx := context.Background()
	c, api := newClient(t)

	ev, err := c.CreateEvent(ctx, "c1", &entity.SpellbookUpdateEvent{Source: "Wizard"})
	require.NoError(t, err)

	require.NoError(t, c.UpdateEvent(ctx, ev))
	assert.Equal(t, 1, api.Calls(http.MethodPatch, "/api/data/spellbook_update/:uuid"))

	require.NoError(t, c.DeleteEvent(ctx, "c1", ev))
	assert.Equal(t, 1, api.Calls(http.MethodDelete, "/api/data/spellbook/:uuid"))
}

func TestDeleteGameRemovesCharacterOnly(t *testing.T) {
	ctx := context.Background()
	c, api := newClient(t)

	ev, err := c.CreateEvent(ctx, "c1", &entity.GameEvent{Name: "Into the Mists", Hours: 4})
	require.NoError(t, err)

	require.NoError(t, c.DeleteEvent(ctx, "c1", ev))
	assert.Equal(t, 1, api.Calls(http.MethodPost, "/api/data/game/:uuid/remove_character"))

	events, err := c.ListEvents(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateEventToleratesUnreadableAnswer(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var created atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		created.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"srv-1"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := remote.New(remote.Config{BaseURL: srv.URL}, remote.WithLogger(zap.New(core)))
	require.NoError(t, err)

	ev, err := c.CreateEvent(context.Background(), "c1", &entity.FreeformEvent{
		DowntimeActivity: entity.DowntimeActivity{Details: "Healing potion used"},
	})
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.EqualValues(t, 1, created.Load())
	assert.Equal(t, 1, logs.FilterMessage("created event not decoded").Len())
}

func TestListEventsSkipsUnknownKinds(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"uuid":"e1","event_type":"dt_freeform","details":"Healing potion used"},
			{"uuid":"e2","event_type":"dt_crafting"},
			{"uuid":"e3","event_type":"game","name":"Into the Mists","hours":4}
		]`))
	}))
	t.Cleanup(srv.Close)

	c, err := remote.New(remote.Config{BaseURL: srv.URL}, remote.WithLogger(zap.New(core)))
	require.NoError(t, err)

	events, err := c.ListEvents(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].Header().UUID)
	assert.Equal(t, "e3", events[1].Header().UUID)

	skipped := logs.FilterMessage("skipped event of unknown type").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "dt_crafting", skipped[0].ContextMap()["event_type"])
}

func TestUnsupportedKindsFailBeforeIO(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)

	_, err := c.CreateEvent(ctx, "c1", &entity.BastionEvent{})
	assert.True(t, apperrors.IsUnsupported(err))

	err = c.DeleteEvent(ctx, "c1", entity.WithID(&entity.BastionEvent{}, "b1"))
	assert.True(t, apperrors.IsUnsupported(err))

	err = c.UpdateEvent(ctx, entity.WithID(&entity.BastionEvent{}, "b1"))
	assert.True(t, apperrors.IsUnsupported(err))
}

func TestStatusErrorsAreClassified(t *testing.T) {
	ctx := context.Background()
	c, api := newClient(t)

	_, err := c.GetMagicItem(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	api.Fail(http.MethodGet, "/api/data/magicitem", http.StatusInternalServerError, 1)
	_, err = c.ListMagicItems(ctx, "c1")
	assert.True(t, apperrors.IsStatus(err))
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
}

func TestTransportErrors(t *testing.T) {
	c, err := remote.New(remote.Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = c.ListConsumables(context.Background(), "c1")
	assert.True(t, apperrors.IsTransport(err))
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	ctx := context.Background()
	api := fakeapi.New(nil)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := remote.New(remote.Config{
		BaseURL: srv.URL,
		Breaker: remote.BreakerConfig{
			Name:             "test",
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 0.5,
			MinRequests:      2,
		},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = c.GetAdvert(ctx, "missing")
		require.True(t, apperrors.IsNotFound(err))
	}
	assert.Equal(t, "closed", c.BreakerState())

	api.Fail(http.MethodGet, "/api/data/magicitem/faesuggestion/", http.StatusBadGateway, -1)
	for i := 0; i < 5; i++ {
		_, _ = c.OwnAdverts(ctx)
	}
	assert.Equal(t, "open", c.BreakerState())

	calls := api.Calls(http.MethodGet, "/api/data/magicitem/faesuggestion/")
	_, err = c.OwnAdverts(ctx)
	assert.True(t, apperrors.IsTransport(err))
	assert.Equal(t, calls, api.Calls(http.MethodGet, "/api/data/magicitem/faesuggestion/"))
}

func TestItemsAndAdverts(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)

	item, err := c.CreateMagicItem(ctx, "c1", entity.MagicItem{Name: "Cloak of Elvenkind", Rarity: entity.RarityUncommon})
	require.NoError(t, err)

	name := "Cloak of Protection"
	require.NoError(t, c.UpdateMagicItem(ctx, entity.MagicItemPatch{UUID: item.UUID, Name: &name}))

	history, err := c.MagicItemHistory(ctx, item.UUID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.ItemEventManual, history[0].EventType)
	assert.Equal(t, entity.ItemEventEdit, history[1].EventType)

	ad, err := c.CreateAdvert(ctx, entity.AdvertRequest{ItemUUID: item.UUID, Description: "for trade"})
	require.NoError(t, err)
	assert.Equal(t, "Cloak of Protection", ad.Item.Name)

	own, err := c.OwnAdverts(ctx)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	require.NoError(t, c.DeleteAdvert(ctx, ad.UUID))
	_, err = c.GetAdvert(ctx, ad.UUID)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, c.DeleteMagicItem(ctx, item.UUID))
	items, err := c.ListMagicItems(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestConsumablesAndCharacter(t *testing.T) {
	ctx := context.Background()
	c, api := newClient(t)
	api.AddCharacter(entity.Character{UUID: "c1", Name: "Mira", Level: 3, Gold: 100})

	potion, err := c.CreateConsumable(ctx, "c1", entity.Consumable{Name: "Potion of Healing", Charges: 3})
	require.NoError(t, err)

	charges := 2
	require.NoError(t, c.UpdateConsumable(ctx, entity.ConsumablePatch{UUID: potion.UUID, Charges: &charges}))

	list, err := c.ListConsumables(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Charges)

	_, err = c.CreateEvent(ctx, "c1", &entity.FreeformEvent{DowntimeActivity: entity.DowntimeActivity{GoldChange: -30}})
	require.NoError(t, err)

	ch, err := c.GetCharacter(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 70.0, ch.Gold)

	require.NoError(t, c.DeleteConsumable(ctx, potion.UUID))
}

func TestDMRewards(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)

	reward, err := c.CreateDMReward(ctx, "dm1", entity.DMRewardRequest{Name: "Levelling", Hours: 10, CharItems: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "dm1", reward.DM)

	rewards, err := c.ListDMRewards(ctx, "dm1")
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, 10.0, rewards[0].Hours)

	require.NoError(t, c.DeleteDMReward(ctx, reward.UUID))
	rewards, err = c.ListDMRewards(ctx, "dm1")
	require.NoError(t, err)
	assert.Empty(t, rewards)
}

func TestRequestsAreTraced(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c, _ := newClient(t, remote.WithTracer(tp.Tracer("test")))
	_, err := c.GetMagicItem(context.Background(), "missing")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "remote.GetMagicItem", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.Int("http.status_code", 404))
}
