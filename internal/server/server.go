// Package server assembles the helix HTTP server from configuration.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/txn2/helix/internal/apidocs"
	"github.com/txn2/helix/pkg/api"
	"github.com/txn2/helix/pkg/auth"
	"github.com/txn2/helix/pkg/cache"
	"github.com/txn2/helix/pkg/config"
	"github.com/txn2/helix/pkg/health"
	"github.com/txn2/helix/pkg/notify"
	"github.com/txn2/helix/pkg/opstools"
	"github.com/txn2/helix/pkg/tenant"
)

// Version is set at build time.
var Version = "dev"

// Server is a fully wired helix instance.
type Server struct {
	cfg     *config.Config
	cache   *cache.Cache
	checker *health.Checker
	handler http.Handler
	stores  *stores
}

// New builds the server described by cfg. The caller must Close it.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := cache.New(cache.Config{
		MaxMemoryBytes:    cfg.Cache.MaxMemoryBytes,
		DefaultTTL:        cfg.Cache.DefaultTTL,
		CompressThreshold: cfg.Cache.CompressThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	st, err := openStores(cfg.Database)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	s := &Server{cfg: cfg, cache: c, checker: health.NewChecker(), stores: st}
	if err := s.wire(); err != nil {
		_ = s.Close()
		return nil, err
	}

	c.StartCleanupRoutine(cfg.Cache.SweepInterval)
	return s, nil
}

func (s *Server) wire() error {
	email, push, err := buildChannels(s.cfg.Notify, s.stores.directory)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(s.stores.notifications, email, push, notify.Config{
		BatchSize:   s.cfg.Notify.BatchSize,
		FrontendURL: s.cfg.Notify.FrontendURL,
	})

	authMiddle, err := buildAuth(s.cfg.Auth)
	if err != nil {
		return err
	}

	tenants := tenant.NewCachedStore(s.stores.tenants, s.cache, s.cfg.Cache.TenantTTL)

	if s.stores.db != nil {
		db := s.stores.db
		s.checker.AddProbe("database", func(ctx context.Context) error {
			return db.PingContext(ctx)
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewHandler(api.Deps{
		Tenants:       tenants,
		Notifications: s.stores.notifications,
		Dispatcher:    dispatcher,
		Cache:         s.cache,
	}, authMiddle))
	mux.Handle("GET /healthz", s.checker.LivenessHandler())
	mux.Handle("GET /readyz", s.checker.ReadinessHandler())
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.InstanceName(apidocs.SwaggerInfo.InstanceName()),
	))

	if s.cfg.MCP.Enabled {
		mcpServer := opstools.NewServer(Version, opstools.Deps{
			Cache:         s.cache,
			Tenants:       tenants,
			Notifications: s.stores.notifications,
		})
		mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return mcpServer
		}, nil)
		mux.Handle("/mcp", authMiddle(auth.RequireRole(auth.RoleAdmin)(mcpHandler)))
	}

	s.handler = corsMiddleware(mux)
	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Checker returns the readiness checker.
func (s *Server) Checker() *health.Checker {
	return s.checker
}

// DB returns the SQL database, or nil for the memory driver.
func (s *Server) DB() *sql.DB {
	return s.stores.db
}

// Run serves on address until ctx is cancelled, then drains and shuts
// down within the configured grace period.
func (s *Server) Run(ctx context.Context, address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	s.checker.SetReady()
	slog.Info("helix listening", "address", ln.Addr().String(), "version", Version)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.checker.SetDraining()
	slog.Info("draining", "delay", s.cfg.Server.PreShutdownDelay)
	time.Sleep(s.cfg.Server.PreShutdownDelay)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	slog.Info("helix stopped")
	return nil
}

// Close releases the cache sweeper and the database.
func (s *Server) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.stores != nil {
		errs = append(errs, s.stores.Close())
	}
	return errors.Join(errs...)
}
