package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crawld/server/internal/config"
	"github.com/crawld/server/internal/core/sched"
	"github.com/crawld/server/internal/data"
	"github.com/crawld/server/internal/handler"
	gonet "github.com/crawld/server/internal/net"
	"github.com/crawld/server/internal/persist"
	"github.com/crawld/server/internal/scripting"
	"github.com/crawld/server/internal/system"
	"github.com/crawld/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              crawld  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     cooperative dungeon crawl server      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("CRAWLD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Connect to PostgreSQL and run migrations. An empty DSN runs the
	// whole world in memory: accounts last for the process and nothing
	// is saved.
	var (
		persister *persist.Persister
		auth      gonet.Authenticator
	)
	if cfg.Database.DSN != "" {
		printSection("database")

		db, err := persist.Open(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("postgres connected")

		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			printOK("migrations applied")
		}

		accountRepo := persist.NewAccountRepo(db)
		if err := accountRepo.ClearOnline(ctx); err != nil {
			log.Warn("clear online flags failed", zap.Error(err))
		}
		auth = persist.NewAccountAuth(accountRepo, log)
		persister = persist.NewPersister(db, log)
		fmt.Println()
	} else {
		auth = gonet.NewMemoryAuth()
		log.Warn("running without a database, nothing will be saved")
	}

	// 4. Create world state and restore persisted rows
	st := world.New()

	var storedSchedules []world.Schedule
	if persister != nil {
		printSection("restore")

		players, err := persister.Players.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load players: %w", err)
		}
		for i := range players {
			p := players[i]
			st.Players.Insert(p.Identity, &p)
		}
		printStat("players", len(players))

		items, err := persister.Inventory.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load inventory: %w", err)
		}
		for i := range items {
			it := items[i]
			st.Inventory.Insert(it.ID, &it)
		}
		printStat("inventory items", len(items))

		maxID, err := persister.Inventory.MaxID(ctx)
		if err != nil {
			return fmt.Errorf("load max item id: %w", err)
		}
		st.IDs.Skip(maxID)

		cooldowns, err := persister.Raids.LoadCooldowns(ctx, time.Now().UnixMicro())
		if err != nil {
			return fmt.Errorf("load raid cooldowns: %w", err)
		}
		for i := range cooldowns {
			cd := cooldowns[i]
			st.RaidCooldowns.Insert(cd.Player, &cd)
		}
		printStat("raid lockouts", len(cooldowns))

		today := time.Now().UTC().Format("2006-01-02")
		clears, err := persister.Raids.LoadDailyClears(ctx, today)
		if err != nil {
			return fmt.Errorf("load daily clears: %w", err)
		}
		for i := range clears {
			c := clears[i]
			st.DailyClears.Insert(world.DailyClearKey{Player: c.Player, Date: c.Date}, &c)
		}
		printStat("daily clears", len(clears))

		storedSchedules, err = persister.Schedules.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load schedules: %w", err)
		}
		fmt.Println()
	}

	// 5. Load balance tables
	printSection("data load")

	classes, err := data.LoadClassTable(filepath.Join(cfg.Game.DataDir, "classes.yaml"))
	if err != nil {
		return fmt.Errorf("load classes: %w", err)
	}
	printStat("classes", classes.Count())

	enemies, err := data.LoadEnemyTable(filepath.Join(cfg.Game.DataDir, "enemies.yaml"))
	if err != nil {
		return fmt.Errorf("load enemies: %w", err)
	}
	printStat("enemy templates", enemies.Count())

	spawns, err := data.LoadSpawnTable(filepath.Join(cfg.Game.DataDir, "spawns.yaml"))
	if err != nil {
		return fmt.Errorf("load spawns: %w", err)
	}
	printStat("room spawn sets", spawns.Count())

	loot, err := data.LoadLootTable(filepath.Join(cfg.Game.DataDir, "loot.yaml"))
	if err != nil {
		return fmt.Errorf("load loot: %w", err)
	}
	printStat("loot tables", loot.Count())

	grid, err := data.LoadOpenWorldTable(filepath.Join(cfg.Game.DataDir, "openworld.yaml"))
	if err != nil {
		return fmt.Errorf("load open world grid: %w", err)
	}
	printOK("open world grid loaded")

	// 6. Lua formula engine
	engine, err := scripting.NewEngine(cfg.Game.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printOK("formula engine ready")
	fmt.Println()

	// 7. Systems and schedules
	sc := sched.New(log)
	spawner := system.NewSpawner(st, enemies, spawns, log)
	lootGen := system.NewLootGenerator(st, loot, log)
	aiSys := system.NewAISystem(st, enemies, engine, spawner, log)
	abilitySys := system.NewAbilitySystem(st, log)
	worldSys := system.NewOpenWorldSystem(st, enemies, grid, engine, log)
	matchmaker := system.NewMatchmaker(st, enemies, spawner, sc, log)

	sc.Register(system.ScheduleAI, cfg.Game.AITick, aiSys.Tick)
	sc.Register(system.ScheduleAbilities, cfg.Game.AITick, abilitySys.Tick)
	sc.Register(system.ScheduleOpenWorld, cfg.Game.OpenWorldTick, worldSys.Tick)
	sc.Register(system.ScheduleMatchmaking, cfg.Game.MatchmakingTick, matchmaker.Tick)
	if persister != nil {
		// Flush logs its own per-batch failures and retries next round.
		sc.Register(system.SchedulePersist, cfg.Game.PersistInterval, func(time.Time, float64) {
			fctx, fcancel := context.WithTimeout(context.Background(), 10*time.Second)
			persister.Flush(fctx, st)
			fcancel()
		})
		sc.Arm(system.SchedulePersist)
	}

	// Re-arm the durable schedules that were running at last shutdown.
	// Registered intervals win over whatever the row recorded.
	for i := range storedSchedules {
		row := storedSchedules[i]
		st.Schedules.Insert(row.Name, &row)
	}
	system.ReArmStored(st, sc, log)

	// 8. Command registry
	reg := handler.NewRegistry()
	deps := &handler.Deps{
		Config:    cfg,
		Log:       log,
		World:     st,
		Sched:     sc,
		Scripting: engine,
		Classes:   classes,
		Enemies:   enemies,
		OpenWorld: grid,
		Spawner:   spawner,
		Loot:      lootGen,
		WorldSys:  worldSys,
		Persister: persister,
	}
	handler.RegisterAll(reg, deps)

	// 9. Network gateway
	srv, err := gonet.NewServer(cfg.Network, auth, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go srv.AcceptLoop()

	hub := gonet.NewHub(log)
	hub.OnGone = auth.Disconnect

	// 10. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Game.TickRate)
	defer ticker.Stop()

	printSection("server ready")
	printReady(fmt.Sprintf("listening on %s", srv.Addr().String()))
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Game.TickRate))
	fmt.Println()

	// Boot restore is not a tick: nothing is subscribed yet and the
	// restored rows came straight off disk.
	st.Journal.Drain()

	last := time.Now()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			elapsed := now.Sub(last)
			last = now

		accept:
			for {
				select {
				case sess := <-srv.NewSessions():
					hub.Add(sess)
				default:
					break accept
				}
			}

			hub.Poll(func(sess *gonet.Session, req *gonet.Request) {
				dispatch(reg, hub, st, sess, req, log)
			})

			sc.Advance(now, elapsed)

			events := st.Journal.Drain()
			if persister != nil {
				persister.Observe(events)
			}
			hub.Broadcast(events)

		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			srv.Shutdown()
			hub.CloseAll()
			if persister != nil {
				persister.Observe(st.Journal.Drain())
				fctx, fcancel := context.WithTimeout(context.Background(), 10*time.Second)
				err := persister.Flush(fctx, st)
				fcancel()
				if err != nil {
					log.Error("final save failed", zap.Error(err))
				} else {
					log.Info("final save complete")
				}
			}
			log.Info("server stopped")
			return nil
		}
	}
}

// dispatch runs one decoded client request on the game loop goroutine.
// Unauthenticated frames never reach here; the session layer already
// rejected them.
func dispatch(reg *handler.Registry, hub *gonet.Hub, st *world.State, sess *gonet.Session, req *gonet.Request, log *zap.Logger) {
	switch req.Op {
	case "sub":
		// Seed frames go out before the reply, so the reply marks the
		// end of the initial sync.
		hub.Seed(sess, st, req.Tables)
		sess.ApplySub(req.Tables)
		sendReply(sess, req.Seq, nil, log)
	case "cmd":
		err := reg.Dispatch(sess.Identity(), req.Name, req.Args)
		if err != nil {
			log.Debug("command rejected",
				zap.String("cmd", req.Name),
				zap.Uint64("identity", uint64(sess.Identity())),
				zap.Error(err))
		}
		sendReply(sess, req.Seq, err, log)
	}
}

// sendReply queues the command outcome on the session. Handler codes pass
// through to the client verbatim; anything else reports as internal.
func sendReply(sess *gonet.Session, seq uint64, err error, log *zap.Logger) {
	rep := &gonet.Reply{Op: "reply", Seq: seq, OK: err == nil}
	if err != nil {
		var code handler.Code
		if errors.As(err, &code) {
			rep.Error = string(code)
		} else {
			rep.Error = "internal"
		}
	}
	frame, merr := gonet.MarshalFrame(rep)
	if merr != nil {
		log.Error("reply marshal failed", zap.Error(merr))
		return
	}
	sess.Send(frame)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
	}

	return zapCfg.Build()
}
