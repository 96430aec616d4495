package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/wricardo/resource-rush/game/engine"
	"github.com/wricardo/resource-rush/game/service"
)

// SSHServerConfig holds configuration for the SSH server
type SSHServerConfig struct {
	// Address is the host:port to listen on
	Address string

	// HostKeyPath is the path to the host key file. If empty, a key is
	// generated at ~/.resource-rush/host_key.
	HostKeyPath string

	// ConfigID selects the game configuration of every session
	ConfigID string

	// IdleTimeout is how long to wait before closing idle connections
	IdleTimeout time.Duration
}

// DefaultSSHServerConfig returns a config with sensible defaults
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
	}
}

// SSHServer serves one game per SSH session
type SSHServer struct {
	config  SSHServerConfig
	server  *ssh.Server
	configs service.ConfigManager
	scores  service.ScoreBoard
	logger  *log.Logger
}

// NewSSHServer creates a new SSH server. scores may be nil.
func NewSSHServer(cfg SSHServerConfig, configs service.ConfigManager, scores service.ScoreBoard) (*SSHServer, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "rush-ssh",
	})

	srv := &SSHServer{
		config:  cfg,
		configs: configs,
		scores:  scores,
		logger:  logger,
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", err)
		}
		hostKeyPath = filepath.Join(home, ".resource-rush", "host_key")
	}
	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// gameConfig returns the configured game rules, or the default rules
// when the config cannot be loaded
func (s *SSHServer) gameConfig() (string, *engine.GameConfig) {
	if s.config.ConfigID != "" {
		cfg, err := s.configs.LoadConfig(s.config.ConfigID)
		if err == nil {
			return s.config.ConfigID, cfg
		}
		s.logger.Warn("could not load config, using default", "config", s.config.ConfigID, "error", err)
	}
	cfg := s.configs.GetDefault()
	return cfg.Name, cfg
}

// teaHandler creates a game for each SSH session
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	if _, _, ok := sshSession.Pty(); !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		wish.Fatalln(sshSession, "Resource Rush needs a terminal: connect with ssh -t")
		return nil, nil
	}

	configID, cfg := s.gameConfig()
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		s.logger.Error("could not start game", "user", sshSession.User(), "error", err)
		wish.Fatalln(sshSession, "could not start game")
		return nil, nil
	}

	model := NewModel(eng, Options{
		ConfigID: configID,
		Player:   "ssh:" + sshSession.User(),
		Scores:   s.scores,
	})

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}
}

// loggingMiddleware logs SSH session events
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		start := time.Now()
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
			"duration", time.Since(start).Round(time.Second),
		)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down
func (s *SSHServer) ListenAndServe(ctx context.Context) error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ssh server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string
func (s *SSHServer) Addr() string {
	return s.config.Address
}
