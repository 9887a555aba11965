package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/action/internal/action"
	"github.com/l1jgo/action/internal/config"
	"github.com/l1jgo/action/internal/core/event"
	coresys "github.com/l1jgo/action/internal/core/system"
	"github.com/l1jgo/action/internal/data"
	"github.com/l1jgo/action/internal/diag"
	"github.com/l1jgo/action/internal/persist"
	"github.com/l1jgo/action/internal/scripting"
	"github.com/l1jgo/action/internal/system"
)

const version = "v0.1.0"

func newRunCmd() *cobra.Command {
	var exitWhenIdle bool
	cmd := &cobra.Command{
		Use:   "run [timeline...]",
		Short: "Run the tick loop, starting the configured or named timelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			return run(cfg, log, args, exitWhenIdle)
		},
	}
	cmd.Flags().BoolVar(&exitWhenIdle, "exit-when-idle", false, "stop once every timeline finished")
	return cmd
}

func run(cfg *config.Config, log *zap.Logger, names []string, exitWhenIdle bool) error {
	printBanner(version)

	// 1. Scripting and timelines
	printSection("Data")
	var lua *scripting.Engine
	if cfg.Scripting.Enabled {
		eng, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer eng.Close()
		lua = eng
		printOK("Lua scripts loaded from " + cfg.Scripting.Dir)
	}
	timelines, err := data.LoadTimelines(cfg.Timelines.File)
	if err != nil {
		return fmt.Errorf("load timelines: %w", err)
	}
	printStat("timelines", timelines.Count())
	fmt.Println()

	// 2. Scheduler core
	ctx := action.NewContext(log)
	driver := action.NewDriver(ctx, log)
	bus := event.NewBus()
	tracer := diag.NewTracer(bus, log)
	ctx.SetHooks(tracer.Hooks())
	if lua != nil {
		lua.SetFrameSource(ctx.Frame)
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewActionSystem(driver, cfg.Driver.SlowTick, log))
	recycle := system.NewRecycleSystem(driver)
	runner.Register(recycle)

	// 3. Optional run journal
	runID := uuid.New()
	var journal *system.JournalSystem
	if cfg.Database.Enabled {
		printSection("Database")
		dbCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.Open(dbCtx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected, journal schema up to date")
		fmt.Println()

		journal = system.NewJournalSystem(driver, persist.NewJournalRepo(db), runID, cfg.Database.JournalFlushTicks, log)
		runner.Register(journal)
	}
	driver.SetObserver(func(rec action.Record) {
		tracer.Observe(rec)
		if journal != nil {
			journal.Observe(rec)
		}
	})

	// 4. Start timelines
	if len(names) == 0 {
		names = cfg.Timelines.Autostart
	}
	board := data.NewBlackboard()
	env := data.Env{Log: log, Lua: lua, Board: board}
	for _, name := range names {
		tl := timelines.Get(name)
		if tl == nil {
			return fmt.Errorf("unknown timeline %q", name)
		}
		root, err := tl.Compile(ctx, env)
		if err != nil {
			return err
		}
		if _, err := driver.Start(root, nil); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
	}

	// 5. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Driver.TickRate)
	defer ticker.Stop()

	printSection("Ready")
	printReady(fmt.Sprintf("run %s", runID))
	printReady(fmt.Sprintf("tick loop started (tick: %s, controllers: %d)", cfg.Driver.TickRate, driver.Len()))
	fmt.Println()

	var ticks uint64
loop:
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Driver.TickRate)
			ticks++
			if cfg.Driver.MaxTicks > 0 && ticks >= cfg.Driver.MaxTicks {
				log.Info("tick limit reached", zap.Uint64("ticks", ticks))
				break loop
			}
			if exitWhenIdle && driver.Len() == 0 {
				log.Info("all timelines finished", zap.Uint64("ticks", ticks))
				break loop
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			break loop
		}
	}

	// 6. Shutdown: cancel everything still running, then drain pools,
	// journal and events without advancing the driver again.
	stopped := driver.StopAll()
	runner.TickPhase(coresys.PhaseCleanup, 0)
	if journal != nil {
		if err := journal.Drain(context.Background()); err != nil {
			log.Error("journal drain failed", zap.Error(err))
		}
	}
	runner.TickPhase(coresys.PhaseDispatch, 0)

	stats := ctx.Stats()
	counts := tracer.Counts()
	log.Info("scheduler stopped",
		zap.Uint64("ticks", ticks),
		zap.Int("stopped", stopped),
		zap.Uint64("units_allocated", stats.Allocated),
		zap.Uint64("units_reused", stats.Reused),
		zap.Int("units_pooled", stats.Pooled),
		zap.Uint64("units_recycled", recycle.Recycled()),
		zap.Uint64("faults", stats.Faults),
		zap.Uint64("controllers_done", counts.Controllers),
	)
	for _, k := range board.Keys() {
		v, _ := board.Get(k)
		log.Debug("blackboard", zap.String("key", k), zap.Float64("value", v))
	}
	return nil
}
