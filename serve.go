package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/resource-rush/api"
	"github.com/wricardo/resource-rush/game/service"
	"github.com/wricardo/resource-rush/transport/mcp"
	"github.com/wricardo/resource-rush/transport/websocket"
)

const (
	defaultPort        = 8080
	defaultHost        = "localhost"
	defaultExternalAPI = "http://localhost:8080"
	shutdownTimeout    = 10 * time.Second
)

// ngrokOptions configures the optional public tunnel
type ngrokOptions struct {
	Enabled   bool
	AuthToken string
	Domain    string
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the REST API, WebSocket updates and the /mcp endpoint",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP server port",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "HTTP server host",
				Value:   defaultHost,
				Sources: cli.EnvVars("HOST"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := initializeServices(serviceOptionsFrom(cmd))
			if err != nil {
				return err
			}
			defer svc.Close()
			svc.startMaintenance(ctx)

			addr := fmt.Sprintf("%s:%d", cmd.String("host"), int(cmd.Int("port")))
			return runHTTPServer(ctx, svc.game, addr, ngrokOptions{
				Enabled:   cmd.Bool("ngrok"),
				AuthToken: cmd.String("ngrok-auth"),
				Domain:    cmd.String("ngrok-domain"),
			})
		},
	}
}

// newHTTPHandler builds the REST API with a WebSocket hub and the /mcp
// endpoint proxying to baseURL
func newHTTPHandler(ctx context.Context, gameService service.GameService, baseURL string) http.Handler {
	hub := websocket.NewHub()
	go hub.Run(ctx)

	apiServer := api.NewServer(gameService, hub)
	apiServer.Handle("/mcp", mcp.NewClient(baseURL).HTTPHandler())
	return apiServer
}

// runHTTPServer serves until ctx is cancelled. If ngrok is enabled it also
// serves through a public tunnel.
func runHTTPServer(ctx context.Context, gameService service.GameService, addr string, tunnel ngrokOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := newHTTPHandler(ctx, gameService, "http://"+addr)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("HTTP server listening", "addr", addr)
		log.Info("endpoints",
			"api", "http://"+addr+"/api",
			"websocket", "ws://"+addr+"/ws?session=<session_id>",
			"mcp", "http://"+addr+"/mcp",
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
			cancel()
		}
	}()

	if tunnel.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveNgrok(ctx, handler, tunnel)
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	wg.Wait()
	log.Info("server stopped")

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// serveNgrok serves handler through an ngrok tunnel until ctx is cancelled
func serveNgrok(ctx context.Context, handler http.Handler, opts ngrokOptions) {
	if opts.AuthToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info("starting ngrok tunnel")

	var endpoint ngrokConfig.Tunnel
	if opts.Domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.Domain))
		log.Info("using custom ngrok domain", "domain", opts.Domain)
	} else {
		endpoint = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(opts.AuthToken))
	if err != nil {
		log.Error("failed to start ngrok tunnel", "err", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	url := tun.URL()
	log.Info("ngrok tunnel established",
		"url", url,
		"api", url+"/api",
		"websocket", url+"/ws?session=<session_id>",
		"mcp", url+"/mcp",
	)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error("ngrok server error", "err", err)
	}
	log.Info("ngrok tunnel closed")
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP stdio server backed by the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "REST API to reuse when it is running",
				Value:   defaultExternalAPI,
				Sources: cli.EnvVars("RUSH_API_URL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStdioMCP(ctx, cmd)
		},
	}
}

// apiAvailable reports whether a REST API answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the REST API on a random loopback port and
// returns its base URL
func startInternalAPI(ctx context.Context, gameService service.GameService) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}

	baseURL := "http://" + listener.Addr().String()
	httpServer := &http.Server{Handler: newHTTPHandler(ctx, gameService, baseURL)}

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("internal HTTP server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	return baseURL, nil
}

// runStdioMCP serves MCP over stdio. It reuses the API at --api-url when
// one answers, otherwise it starts an internal API with its own services.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("api-url")
	log.Info("checking for external API server", "url", baseURL)

	if apiAvailable(ctx, baseURL) {
		log.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		log.Info("no external API server found, starting internal HTTP server")

		svc, err := initializeServices(serviceOptionsFrom(cmd))
		if err != nil {
			return err
		}
		defer svc.Close()
		svc.startMaintenance(ctx)

		if baseURL, err = startInternalAPI(ctx, svc.game); err != nil {
			return err
		}
		log.Info("internal HTTP server ready", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
