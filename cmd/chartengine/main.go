// cmd/chartengine — streaming indicator computation engine.
//
// Pipeline:
//
//	[Feed WS / Sim] → [Candle Buffer] → [Scheduler] → [Engine] → [Gateway WS]
//	                        └→ bar closes → [Redis mirror / SQLite journal]
//
// All buffer mutation and indicator computation happens on the single event
// loop below; feed, gateway clients and store writers only exchange data
// with it over channels.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"chart-systemv1/config"
	"chart-systemv1/internal/candlebuf"
	"chart-systemv1/internal/engine"
	"chart-systemv1/internal/gateway"
	"chart-systemv1/internal/indicator"
	"chart-systemv1/internal/logger"
	"chart-systemv1/internal/marketdata/bus"
	"chart-systemv1/internal/marketdata/sim"
	"chart-systemv1/internal/marketdata/ws"
	"chart-systemv1/internal/metrics"
	"chart-systemv1/internal/model"
	"chart-systemv1/internal/scheduler"
	redisstore "chart-systemv1/internal/store/redis"
	sqlitestore "chart-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[chartengine] starting...")

	cfg := config.Load()
	slogger := logger.Init("chartengine", logger.ParseLevel(cfg.LogLevel))
	slogger.Info("config loaded",
		slog.String("symbol", cfg.Symbol),
		slog.Duration("interval", cfg.Interval),
		slog.Bool("sim_mode", cfg.SimMode),
		slog.Int("buffer_capacity", cfg.BufferCapacity),
	)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[chartengine] shutdown signal received, cleaning up...")
		cancel()
	}()

	ivLabel := intervalLabel(cfg.Interval)

	// ---- Candle buffer + warm start from the journal ----
	buffer := candlebuf.New(cfg.BufferCapacity)

	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		log.Printf("[chartengine] mkdir %s: %v", filepath.Dir(cfg.SQLitePath), err)
	}
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{
		DBPath:   cfg.SQLitePath,
		Symbol:   cfg.Symbol,
		Interval: ivLabel,
	})
	if err != nil {
		log.Fatalf("[chartengine] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()

	if warm, err := sqlWriter.LoadRecent(cfg.BufferCapacity); err != nil {
		log.Printf("[chartengine] warm start failed: %v (starting cold)", err)
	} else {
		for _, c := range warm {
			buffer.Ingest(c)
		}
		buffer.ClearDirty()
		log.Printf("[chartengine] warm start: %d candles loaded from journal", buffer.Len())
	}

	// ---- Redis mirror (optional) ----
	redisWriter, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Symbol:   cfg.Symbol,
		Interval: ivLabel,
	})
	if err != nil {
		log.Printf("[chartengine] WARNING: redis init failed: %v (continuing without redis)", err)
		redisWriter = nil
	}
	defer func() {
		if redisWriter != nil {
			redisWriter.Close()
		}
	}()

	// ---- Fan out bar closes to the stores (OFF hot path) ----
	committedCh := make(chan model.Candle, 1024)
	fanout := bus.New(1024)
	sqliteCh := fanout.Subscribe("sqlite")
	var redisCh <-chan model.Candle
	if redisWriter != nil {
		redisCh = fanout.Subscribe("redis")
	}
	go fanout.Run(ctx, committedCh)
	go sqlWriter.Run(ctx, sqliteCh)
	if redisWriter != nil {
		go redisWriter.Run(ctx, redisCh)
	}

	// ---- Engine + scheduler ----
	eng := engine.New(indicator.Registry(), buffer.Snapshot, engine.Metrics{
		OnRecompute: func(d time.Duration, _ int) {
			prom.RecomputeDur.Observe(d.Seconds())
		},
		OnComputeFail: func(id string) {
			prom.ComputeFailures.WithLabelValues(id).Inc()
		},
	})

	sched := scheduler.New()
	sched.OnCoalesce = func() {
		prom.CoalescedKicks.Inc()
	}

	for _, id := range cfg.ParseIndicators() {
		if _, err := eng.Activate(id); err != nil {
			log.Printf("[chartengine] default indicator %q: %v", id, err)
		}
	}
	prom.ActiveIndicators.Set(float64(len(eng.Active())))
	health.SetActiveCount(len(eng.Active()))
	log.Printf("[chartengine] active indicators: %v", eng.Active())

	// ---- Gateway ----
	hub := gateway.NewHub()
	hub.OnClientChange = func(n int) {
		prom.WSClients.Set(float64(n))
	}
	gwSrv := gateway.NewServer(cfg.GatewayAddr, hub, eng.Registry())
	gwSrv.Start()

	// ---- Market data feed ----
	candleCh := make(chan model.Candle, 4096)
	if cfg.SimMode {
		feed := sim.New(sim.Config{Interval: cfg.Interval})
		health.SetFeedConnected(true)
		go feed.Start(ctx, candleCh)
		log.Println("[chartengine] *** SIM MODE — using generated candles ***")
	} else {
		feed, err := ws.New(ws.Config{
			URL:      cfg.FeedURL,
			Symbol:   cfg.Symbol,
			Interval: cfg.Interval,
		})
		if err != nil {
			log.Fatalf("[chartengine] feed init failed: %v", err)
		}
		feed.OnReconnect = func() {
			prom.FeedReconnects.Inc()
		}
		feed.OnConnected = health.SetFeedConnected
		go func() {
			if err := feed.Start(ctx, candleCh); err != nil {
				log.Printf("[chartengine] feed error: %v", err)
			}
		}()
	}

	cadence := cfg.Cadence
	if cadence == 0 {
		cadence = scheduler.CadenceFor(cfg.Interval)
	}
	log.Printf("[chartengine] recompute cadence: %v (interval %v)", cadence, cfg.Interval)

	runLoop(ctx, loopDeps{
		cadence:     cadence,
		buffer:      buffer,
		eng:         eng,
		sched:       sched,
		hub:         hub,
		prom:        prom,
		health:      health,
		redisWriter: redisWriter,
		candleCh:    candleCh,
		committedCh: committedCh,
	})

	// ---- Shutdown ----
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	gwSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	log.Println("[chartengine] shutdown complete.")
}

// loopDeps bundles everything the event loop touches.
type loopDeps struct {
	cadence     time.Duration
	buffer      *candlebuf.Buffer
	eng         *engine.Engine
	sched       *scheduler.Scheduler
	hub         *gateway.Hub
	prom        *metrics.Metrics
	health      *metrics.HealthStatus
	redisWriter *redisstore.Writer
	candleCh    chan model.Candle
	committedCh chan model.Candle
}

// runLoop is the single-writer event loop: it alone mutates the buffer and
// the engine's active set, so a recompute can never observe a half-applied
// market event. Blocks until ctx is cancelled.
func runLoop(ctx context.Context, d loopDeps) {
	ticker := time.NewTicker(d.cadence)
	defer ticker.Stop()

	publish := func(series map[string]model.Series) {
		var lastPtr *model.Candle
		if last, ok := d.buffer.Last(); ok {
			lastPtr = &last
		}
		envelope := d.hub.BroadcastSnapshot(d.eng.Active(), series, lastPtr)
		if envelope != nil && d.redisWriter != nil {
			d.redisWriter.PublishSnapshot(ctx, envelope)
		}
	}

	ingest := func(c model.Candle) {
		last, had := d.buffer.Last()
		if err := d.buffer.Ingest(c); err != nil {
			d.prom.OutOfOrderDrops.Inc()
			log.Printf("[chartengine] dropped candle: %v", err)
			return
		}
		if had && c.Time == last.Time {
			d.prom.TickRevisions.Inc()
		} else {
			d.prom.CandlesCommitted.Inc()
			if had {
				// The previous bar just closed — journal it.
				select {
				case d.committedCh <- last:
				default:
				}
			}
		}
		d.health.SetLastCandleTime(time.Unix(c.Time, 0))
		d.health.SetBufferLen(d.buffer.Len())
		d.sched.Kick()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-d.candleCh:
			ingest(c)
			// Drain any burst so it coalesces into one recompute.
			for drained := false; !drained; {
				select {
				case c := <-d.candleCh:
					ingest(c)
				default:
					drained = true
				}
			}

		case cmd := <-d.hub.Commands:
			switch cmd.Action {
			case "activate":
				if _, err := d.eng.Activate(cmd.ID); err != nil {
					cmd.Client.SendError(cmd.ReqID, err.Error())
				} else {
					cmd.Client.SendAck(cmd.Action, cmd.ID, cmd.ReqID, d.eng.Active())
					publish(d.eng.Series())
				}
			case "deactivate":
				if err := d.eng.Deactivate(cmd.ID); err != nil {
					cmd.Client.SendError(cmd.ReqID, err.Error())
				} else {
					cmd.Client.SendAck(cmd.Action, cmd.ID, cmd.ReqID, d.eng.Active())
					publish(d.eng.Series())
				}
			}
			d.prom.ActiveIndicators.Set(float64(len(d.eng.Active())))
			d.health.SetActiveCount(len(d.eng.Active()))

		case <-ticker.C:
			if d.buffer.Dirty() {
				d.sched.Kick()
			}
		}

		if d.sched.TakePending() {
			series := d.eng.RecomputeAll()
			d.buffer.ClearDirty()
			d.prom.RecomputesTotal.Inc()
			publish(series)
		}
	}
}

// intervalLabel renders an interval for use in store key names: "1m", "5m",
// "1h", "1d".
func intervalLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
