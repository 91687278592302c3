package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	cache "github.com/krisalay/campaign-cache"
	"github.com/krisalay/campaign-cache/config"
	"github.com/krisalay/campaign-cache/engine"
	"github.com/krisalay/campaign-cache/entity"
	"github.com/krisalay/campaign-cache/expiration"
	"github.com/krisalay/campaign-cache/internal/fakeapi"
	"github.com/krisalay/campaign-cache/ledger"
	"github.com/krisalay/campaign-cache/logging"
	"github.com/krisalay/campaign-cache/metrics"
	"github.com/krisalay/campaign-cache/mutation"
	"github.com/krisalay/campaign-cache/refresh"
	"github.com/krisalay/campaign-cache/remote"
	"github.com/krisalay/campaign-cache/snapshot"
	"github.com/krisalay/campaign-cache/types"
	"github.com/krisalay/campaign-cache/writepolicy"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (QUESTLOG_* variables override it)")
		fake       = flag.Bool("fake", false, "serve an in-memory API instead of calling api.base_url")
		character  = flag.String("character", "c1", "character to show")
		wait       = flag.Bool("wait", false, "keep serving /metrics until interrupted")
	)
	flag.Parse()

	if err := run(*configPath, *fake, *character, *wait); err != nil {
		fmt.Fprintln(os.Stderr, "questlog:", err)
		os.Exit(1)
	}
}

func run(configPath string, fake bool, character string, wait bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, _, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fmt.Println("\n==================== SYSTEM BOOT ====================")

	// ---------------- API ----------------
	var api *fakeapi.Server
	if fake {
		api = fakeapi.New(logger.Named("fakeapi"))
		seed(api, character)

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return err
		}
		srv := &http.Server{Handler: api, ReadHeaderTimeout: 5 * time.Second}
		go func() { _ = srv.Serve(ln) }()
		defer srv.Close()

		cfg.API.BaseURL = "http://" + ln.Addr().String()
	}
	fmt.Println("API             :", cfg.API.BaseURL)
	fmt.Println("EVICTION POLICY :", cfg.Cache.Eviction)
	fmt.Println("SHARDS          :", cfg.Cache.Shards)
	fmt.Println("CAPACITY        :", cfg.Cache.Capacity)
	fmt.Println("SNAPSHOTS       :", cfg.Snapshot.Mode)

	rc, err := remote.New(cfg.Remote(), remote.WithLogger(logger.Named("remote")))
	if err != nil {
		return err
	}

	// ---------------- Metrics ----------------
	reg := prometheus.NewRegistry()
	m, err := metrics.NewPrometheus(reg, "questlog")
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		msrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer msrv.Close()
		fmt.Println("METRICS         :", cfg.MetricsAddr+"/metrics")
	}

	// ---------------- Snapshots ----------------
	var (
		store       types.SnapshotStore
		writePolicy writepolicy.WritePolicy
	)
	if cfg.Snapshot.Mode != config.SnapshotOff {
		opt, err := redis.ParseURL(cfg.Snapshot.RedisURL)
		if err != nil {
			return fmt.Errorf("snapshot redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		rs := snapshot.NewRedisStore(rdb, cfg.Snapshot.Prefix, cfg.Snapshot.TTL)
		store = rs
		if cfg.Snapshot.Mode == config.SnapshotBack {
			writePolicy = writepolicy.NewWriteBackPolicy(rs, cfg.Snapshot.Buffer, logger.Named("snapshot"))
		} else {
			writePolicy = writepolicy.NewWriteThroughPolicy(rs, logger.Named("snapshot"))
		}
	}

	// ---------------- Cache ----------------
	var staleness expiration.Strategy
	if cfg.Cache.StaleTime > 0 {
		staleness = &expiration.StaleAfterWrite{TTL: cfg.Cache.StaleTime}
	}

	router := ledger.NewRouter(rc)
	eng := engine.NewCacheEngine(
		staleness,
		refresh.StaleWhileRevalidate{},
		router,
		writePolicy,
		m,
		cfg.Cache.GCTime,
	)

	qc := cache.NewQueryCache(
		cfg.Cache.Shards,
		cfg.Cache.Capacity,
		cfg.EvictionPolicy(),
		eng,
		cache.WithLogger(logger.Named("cache")),
	)
	qc.Start()
	defer func() {
		qc.Close()
		fmt.Println("SYSTEM → cache closed cleanly")
	}()

	lc := ledger.New(qc, rc, router,
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithSnapshotStore(store),
		ledger.WithMutationOptions(mutation.WithMetrics(m), mutation.WithLogger(logger.Named("mutation"))),
	)

	// ====================================================
	fmt.Println("\n==================== 1) HYDRATE ====================")
	n, err := lc.Hydrate(ctx, ledger.EventsKey(character), ledger.CharacterKey(character))
	if err != nil {
		logger.Warn("hydrate failed", zap.Error(err))
	}
	fmt.Println("SNAPSHOT → restored", n, "entries")

	// ====================================================
	fmt.Println("\n==================== 2) WATCH EVENTS ====================")
	unsubscribe := lc.WatchEvents(character, func(events []entity.Event, ent types.CacheEntry) {
		fmt.Printf("WATCH  → %s status=%s events=%d optimistic=%t stale=%t\n",
			ent.Key, ent.Status, len(events), ent.Optimistic, ent.Stale)
	})
	defer unsubscribe()

	events, err := lc.Events(ctx, character)
	if err != nil {
		return err
	}
	printEvents(events)

	// ====================================================
	fmt.Println("\n==================== 3) OPTIMISTIC CREATE ====================")
	created, err := lc.CreateEvent(ctx, character, &entity.FreeformEvent{
		DowntimeActivity: entity.DowntimeActivity{Title: "Potion", Details: "Healing potion used", GoldChange: -50},
	})
	if err != nil {
		fmt.Println("CREATE → failed:", err)
	} else if created != nil {
		fmt.Println("CREATE → stored as", created.Header().UUID)
	}

	ch, err := lc.Character(ctx, character)
	if err != nil {
		fmt.Println("CHARACTER → failed:", err)
	} else {
		fmt.Printf("CHARACTER → %s level=%d gold=%.0f downtime=%.0f\n", ch.Name, ch.Level, ch.Gold, ch.Downtime)
	}

	// ====================================================
	if api != nil {
		fmt.Println("\n==================== 4) ROLLBACK ====================")
		events, _ = lc.Events(ctx, character)
		if i := slices.IndexFunc(events, func(ev entity.Event) bool { return ev.Kind() == entity.EventFreeform }); i >= 0 {
			api.Fail(http.MethodDelete, "/api/data/freeform/:uuid", http.StatusInternalServerError, 1)
			if err := lc.DeleteEvent(ctx, character, events[i]); err != nil {
				fmt.Println("DELETE → rolled back:", err)
			}
			events, _ = lc.Events(ctx, character)
			printEvents(events)
		}
	}

	// ====================================================
	fmt.Println("\n==================== METRICS ====================")
	printMetrics(reg)

	if wait && cfg.MetricsAddr != "" {
		fmt.Println("\nserving metrics, interrupt to stop")
		<-ctx.Done()
	}

	fmt.Println("\n==================== SHUTDOWN ====================")
	return nil
}

func seed(api *fakeapi.Server, character string) {
	api.AddCharacter(entity.Character{UUID: character, Name: "Mira Thornwood", Species: "Half-elf", Level: 3, Gold: 120, Downtime: 10})
	api.AddEvent(character, &entity.GameEvent{Name: "The Sunless Citadel", Hours: 4, Gold: 80, Levels: 1})
	api.AddEvent(character, &entity.MundaneTradeEvent{
		DowntimeActivity: entity.DowntimeActivity{Details: "Bought a riding horse", GoldChange: -75},
	})
	api.AddMagicItem(entity.MagicItem{CharacterUUID: character, Name: "Cloak of Elvenkind", Rarity: entity.RarityUncommon, Attunement: true})
	api.AddConsumable(entity.Consumable{CharacterUUID: character, Name: "Potion of Healing", Rarity: entity.RarityCommon, Charges: 2})
}

func printEvents(events []entity.Event) {
	for _, ev := range events {
		h := ev.Header()
		fmt.Printf("EVENT  → %-14s %s %s\n", h.EventType, h.UUID, h.Datetime)
	}
}

func printMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Println("METRICS → gather failed:", err)
		return
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			fmt.Printf("%-45s : %.0f\n", mf.GetName(), metric.GetCounter().GetValue())
		}
	}
}
