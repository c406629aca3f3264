package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/mdnooraj/folio/internal/api"
	"github.com/mdnooraj/folio/internal/assistant"
	"github.com/mdnooraj/folio/internal/config"
	"github.com/mdnooraj/folio/internal/contact"
	"github.com/mdnooraj/folio/internal/live"
	"github.com/mdnooraj/folio/internal/page"
	"github.com/mdnooraj/folio/internal/profile"
	"github.com/mdnooraj/folio/internal/retention"
	"github.com/mdnooraj/folio/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the folio server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running folio server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show folio status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "folio.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// assistantOptions maps the assistant config section onto widget options.
func assistantOptions(cfg config.Config) []assistant.Option {
	return []assistant.Option{
		assistant.WithDelay(cfg.Assistant.ReplyDelay),
		assistant.WithGreeting(cfg.Assistant.Greeting),
		assistant.WithFallback(cfg.Assistant.Fallback),
	}
}

func loadProfile(cfg config.Config) (*profile.Store, error) {
	rec, err := profile.Load(cfg.Profile.Path)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return profile.NewStore(rec), nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "folio version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(serverURL(cfg) + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("folio is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("folio is already running on %s", cfg.Addr())
		return fmt.Errorf("server already running on %s", cfg.Addr())
	}

	prof, err := loadProfile(cfg)
	if err != nil {
		return err
	}
	renderer, err := page.New(prof.Record())
	if err != nil {
		return fmt.Errorf("building page: %w", err)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	if cfg.Server.AdminToken == "" {
		slog.Warn("inbox API disabled: FOLIO_ADMIN_TOKEN is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	hub := live.NewHub(prof, logger, assistantOptions(cfg)...)
	handler := api.NewRouter(api.Deps{
		Profile:    prof,
		Page:       renderer,
		Contact:    contact.NewService(store, clock, logger),
		Inbox:      store,
		Assistant:  hub,
		AdminToken: cfg.Server.AdminToken,
		RateLimit:  cfg.Contact.RateLimit,
		Clock:      clock,
		Logger:     logger,
	})

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr(), err)
	}
	if cfg.Server.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConnections)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	worker := retention.NewWorker(store, cfg.Contact.Retention, 0, clock)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "folio listening on http://%s\n", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		worker.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")

		// Hijacked websocket connections are not tracked by Shutdown.
		hub.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("folio is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop folio (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to folio (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    serverURL(cfg),
		token:      cfg.Server.AdminToken,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	running := false
	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on %s", cfg.Addr())
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if prof, err := loadProfile(cfg); err != nil {
		printStatus("Profile", "error: %v", err)
	} else {
		printStatus("Profile", "%s", profileLabel(cfg, prof))
	}
	printStatus("Reply delay", "%s", cfg.Assistant.ReplyDelay)

	if running {
		printStatus("Inbox", "%s", inboxLabel(ctx, client))
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func profileLabel(cfg config.Config, prof *profile.Store) string {
	source := "built-in"
	if cfg.Profile.Path != "" {
		source = cfg.Profile.Path
	}
	return fmt.Sprintf("%s (%s)", prof.Name(), source)
}

func inboxLabel(ctx context.Context, client *apiClient) string {
	if client.token == "" {
		return "disabled (no admin token)"
	}
	resp, err := client.get(ctx, "/api/inbox?limit=1")
	if err != nil {
		return "unknown"
	}
	var inbox api.InboxPage
	if err := decodeJSON(resp, &inbox); err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return countLabel(inbox.Total)
}

func countLabel(n int) string {
	if n == 1 {
		return "1 message"
	}
	return fmt.Sprintf("%d messages", n)
}
