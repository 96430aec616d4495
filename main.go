// Command resource-rush runs the Resource Rush game.
//
// Commands:
//   - serve (default): REST API, WebSocket updates and an /mcp HTTP endpoint,
//     optionally exposed through an ngrok tunnel
//   - mcp: an MCP stdio server that reuses a running API or starts an
//     internal one
//   - play: the game in the local terminal
//   - ssh: the terminal game served over SSH
//   - validate, levels, scores: config and score board tools
//
// Flags can also be set through environment variables, which may come from
// a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/resource-rush/game/config"
	"github.com/wricardo/resource-rush/game/scores"
	"github.com/wricardo/resource-rush/game/service"
	"github.com/wricardo/resource-rush/game/session"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Resource Rush"
)

// Defaults shared by flags and tests
const (
	defaultConfigDir   = "configs"
	defaultSessionsDir = "sessions"
	defaultScoresDB    = "~/.resource-rush/scores.db"

	sessionCleanupInterval = time.Hour
	sessionMaxAge          = 24 * time.Hour
	filesystemSyncInterval = 5 * time.Second
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("error loading .env file", "err", err)
		}
	} else {
		log.Debug("loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal("command failed", "err", err)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "resource-rush",
		Usage:          "Collect resources and reach the target before your moves run out",
		Version:        Version,
		DefaultCommand: "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "directory containing game configurations",
				Value:   defaultConfigDir,
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Usage:   "directory for persisted sessions",
				Value:   defaultSessionsDir,
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.StringFlag{
				Name:    "scores-db",
				Usage:   "SQLite score board path; empty disables the score board",
				Value:   defaultScoresDB,
				Sources: cli.EnvVars("SCORES_DB"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
				log.SetReportCaller(true)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			playCommand(),
			sshCommand(),
			validateCommand(),
			levelsCommand(),
			scoresCommand(),
		},
	}
}

// serviceOptions selects where services keep their data
type serviceOptions struct {
	ConfigDir   string
	SessionsDir string
	ScoresDB    string
}

func serviceOptionsFrom(cmd *cli.Command) serviceOptions {
	return serviceOptions{
		ConfigDir:   cmd.String("config-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		ScoresDB:    cmd.String("scores-db"),
	}
}

// services holds the wired game services of one process
type services struct {
	configs     *config.Manager
	sessions    *session.Manager
	persistence *session.FilePersistence
	scores      *scores.Store
	game        service.GameService
}

// scoreBoard returns the score board as an interface, nil when disabled
func (s *services) scoreBoard() service.ScoreBoard {
	if s.scores == nil {
		return nil
	}
	return s.scores
}

// Close saves sessions and closes the score board
func (s *services) Close() {
	if s.sessions != nil {
		if err := s.sessions.SaveAllSessions(); err != nil {
			log.Warn("failed to save sessions", "err", err)
		}
	}
	if s.scores != nil {
		if err := s.scores.Close(); err != nil {
			log.Warn("failed to close score board", "err", err)
		}
	}
}

// openConfigs creates the config manager
func openConfigs(dir string) (*config.Manager, error) {
	configManager, err := config.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	return configManager, nil
}

// openScores opens the score board. A failure is logged and the game runs
// without one.
func openScores(path string) *scores.Store {
	if path == "" {
		log.Debug("score board disabled")
		return nil
	}
	store, err := scores.Open(path)
	if err != nil {
		log.Warn("could not open score board, runs will not be recorded", "path", path, "err", err)
		return nil
	}
	return store
}

// initializeServices wires config, session, score board and game service
func initializeServices(opts serviceOptions) (*services, error) {
	configManager, err := openConfigs(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	persistence, err := session.NewFilePersistence(opts.SessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warn("failed to load persisted sessions", "err", err)
	}

	s := &services{
		configs:     configManager,
		sessions:    sessionManager,
		persistence: persistence,
		scores:      openScores(opts.ScoresDB),
	}
	s.game = service.NewGameService(sessionManager, configManager, s.scoreBoard())
	return s, nil
}

// startMaintenance runs session cleanup and filesystem sync until ctx is
// cancelled
func (s *services) startMaintenance(ctx context.Context) {
	go sessionCleanupRoutine(ctx, s.sessions, sessionCleanupInterval, sessionMaxAge)
	go filesystemSyncRoutine(ctx, s.sessions, s.persistence, filesystemSyncInterval)
}

// sessionCleanupRoutine periodically drops sessions from memory that have
// not been accessed within maxAge
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Info("cleaned up expired sessions", "count", removed)
			}
		}
	}
}

// filesystemSyncRoutine removes sessions from memory whose files were
// deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneDeletedSessions(manager, persistence)
		}
	}
}

// pruneDeletedSessions drops in-memory sessions without a file
func pruneDeletedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Debug("pruned session from memory, file deleted", "session", sess.ID)
		}
	}
	if pruned > 0 {
		log.Info("filesystem sync pruned sessions", "count", pruned)
	}
	return pruned
}
