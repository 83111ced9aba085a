package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jwebster45206/gatekeeper/internal/config"
	"github.com/jwebster45206/gatekeeper/internal/game"
	"github.com/jwebster45206/gatekeeper/internal/logger"
	"github.com/jwebster45206/gatekeeper/internal/services/events"
	"github.com/jwebster45206/gatekeeper/internal/storage"
	"github.com/jwebster45206/gatekeeper/pkg/encounter"
	"github.com/jwebster45206/gatekeeper/pkg/session"
)

const (
	defaultLogFile = "gatekeeper.log"
	walkDistance   = 30
)

func main() {
	sessionFlag := flag.String("session", "", "resume a saved session by id (requires REDIS_URL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Logging to stdout would draw over the TUI.
	if cfg.LogFile == "" {
		cfg.LogFile = defaultLogFile
	}

	log, closeLog, err := logger.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = closeLog() // Ignore error in defer
	}()

	if err := run(cfg, log, *sessionFlag); err != nil {
		log.Error("Console exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, sessionArg string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		source game.LevelSource = storage.LevelDir{Dir: filepath.Join(cfg.DataDir, "levels"), Logger: log}
		saver  session.Saver
		store  *storage.RedisStorage
	)
	if cfg.RedisURL != "" {
		s, err := connectRedis(ctx, cfg, log)
		if err != nil {
			log.Warn("Redis unavailable, progress will not be saved", "error", err)
		} else {
			store = s
			source = s
			saver = s
			defer func() {
				_ = store.Close() // Ignore error in defer
			}()
		}
	}

	progress, err := loadProgress(ctx, store, sessionArg)
	if err != nil {
		return err
	}
	log = logger.WithSessionID(log, progress.ID.String())

	st := newStage(cfg.DataDir, cfg.MoveDuration, walkDistance)
	g := game.New(source, saver, progress, game.Presentation{
		Dialogue:  st,
		Character: encounter.NewDelayedMotion(st, st, cfg.MoveDuration, cfg.SettleMargin),
		Slots:     st,
	}, game.Options{
		SlotCount:         cfg.SlotCount,
		AppearanceTimeout: cfg.AppearanceTimeout,
		Scheduler:         st,
	}, log)

	if store != nil {
		g.OnEvent(events.NewBroadcaster(store.Client(), log).Handler(progress.ID))
	}

	if err := g.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load levels from %s: %w", cfg.DataDir, err)
	}
	g.Resume(progress.LevelIndex)
	if err := g.Start(); err != nil {
		return fmt.Errorf("failed to start level: %w", err)
	}
	log.Info("Console started", "levels", g.Levels.Count(), "level_index", g.Levels.CurrentIndex())

	p := tea.NewProgram(NewConsoleUI(g, st), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}

	correct, total := g.Tracker.Progress().Score()
	fmt.Printf("Session %s: %d of %d decisions correct.\n", progress.ID, correct, total)
	return nil
}

func connectRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage.RedisStorage, error) {
	s, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SessionTTL, log.With("component", "storage"))
	if err != nil {
		return nil, err
	}
	if err := s.WaitForConnection(ctx, 3, 500*time.Millisecond); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// loadProgress resumes the named session or starts a fresh one.
func loadProgress(ctx context.Context, store *storage.RedisStorage, sessionArg string) (*session.Progress, error) {
	if sessionArg == "" {
		return session.NewProgress(), nil
	}
	id, err := uuid.Parse(sessionArg)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", sessionArg, err)
	}
	if store == nil {
		return nil, errors.New("resuming a session requires REDIS_URL")
	}
	p, err := store.LoadProgress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return p, nil
}
