package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/config"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/optimize"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/problems"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/store"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg     config.Config
	client  *gemini.Client
	engine  *reasoning.Engine
	manager *optimize.Manager
	history *store.Store
	closeFn func()
}

// buildApp loads config, connects the model client, and wires the
// engine, optimization manager, and history store together.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	key, err := apiKey()
	if err != nil {
		return nil, err
	}
	client, err := gemini.NewClient(ctx, key, cfg.Gemini)
	if err != nil {
		return nil, err
	}

	lib, err := prompts.NewLibrary()
	if err != nil {
		return nil, err
	}

	engine := reasoning.New(client, lib, gemini.ParamsFromConfig(cfg.Gemini), cfg.Reasoning)

	validation, err := validationSet(cfg.Optimization)
	if err != nil {
		return nil, err
	}
	manager := optimize.NewManager(engine, optimize.NewGenerator(client, gemini.ParamsFromConfig(cfg.Gemini)), cfg.Optimization, validation)
	engine.SetObserver(manager)

	a := &app{cfg: cfg, client: client, engine: engine, manager: manager, closeFn: func() {}}

	if cfg.Store.Path != "" {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.history = store.NewStore(db)
		a.closeFn = func() { _ = db.Close() }

		// Replay the persisted lineage so optimized prompts survive a
		// restart and rollback has a backup to land on.
		persisted, err := a.history.Versions(ctx, "")
		if err != nil {
			return nil, err
		}
		lib.Restore(persisted)

		// Persist deploy lineage as optimization runs finalize.
		manager.SetRunSink(func(run optimize.Run) {
			bg := context.Background()
			if err := a.history.SaveRun(bg, run); err != nil {
				log.Warn().Err(err).Msg("persist optimization run")
			}
			a.syncVersions(bg)
		})
	}
	return a, nil
}

// syncVersions records the library's full lineage; re-saving already
// recorded versions is a no-op.
func (a *app) syncVersions(ctx context.Context) {
	if a.history == nil {
		return
	}
	for _, strategy := range []string{prompts.StrategyTreeOfThought, prompts.StrategySelfConsistency} {
		for _, v := range a.engine.Library().History(strategy) {
			if err := a.history.SaveVersion(ctx, v); err != nil {
				log.Warn().Err(err).Msg("persist prompt version")
			}
		}
	}
}

// saveSolve persists a solve when the store is enabled.
func (a *app) saveSolve(ctx context.Context, result reasoning.SolveResult) {
	if a.history == nil {
		return
	}
	if err := a.history.SaveSolve(ctx, result); err != nil {
		log.Warn().Err(err).Msg("persist solve")
	}
}

// validationSet loads the configured held-out problems, falling back to
// the built-in set.
func validationSet(cfg config.OptimizationConfig) ([]reasoning.Problem, error) {
	if cfg.ValidationSet == "" {
		return problems.BuiltinValidation(), nil
	}
	return problems.Load(cfg.ValidationSet)
}
