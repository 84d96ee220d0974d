// Package server orchestrates all components: upstream client, registry,
// dispatcher, event publishers, the REST and MCP listeners and the optional
// NATS gateway subscription.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/fred-gateway/internal/config"
	"github.com/morezero/fred-gateway/internal/rest"
	"github.com/morezero/fred-gateway/migrations"
	"github.com/morezero/fred-gateway/pkg/catalog"
	"github.com/morezero/fred-gateway/pkg/commsutil"
	"github.com/morezero/fred-gateway/pkg/db"
	"github.com/morezero/fred-gateway/pkg/dispatcher"
	"github.com/morezero/fred-gateway/pkg/events"
	"github.com/morezero/fred-gateway/pkg/fred"
	"github.com/morezero/fred-gateway/pkg/mcp"
	"github.com/morezero/fred-gateway/pkg/metrics"
	"github.com/morezero/fred-gateway/pkg/semver"
)

const logPrefix = "server:server"

// Description is reported by GET /.
const Description = "REST and MCP gateway to the Federal Reserve Economic Data (FRED) API"

// APIKeyURL is where a FRED API key can be requested.
const APIKeyURL = "https://fred.stlouisfed.org/docs/api/api_key.html"

// Mode selects which HTTP listeners to start.
type Mode string

const (
	ModeREST Mode = "rest"
	ModeMCP  Mode = "mcp"
	ModeAll  Mode = "all"
)

// ParseMode validates a serve mode. Empty means all.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeREST, ModeMCP:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%s - unknown mode %q (want rest, mcp or all)", logPrefix, s)
}

func (m Mode) serves(other Mode) bool {
	return m == ModeAll || m == other
}

// Server is the fred-gateway orchestrator.
type Server struct {
	cfg        *config.Config
	dispatcher *dispatcher.Dispatcher
	metrics    *metrics.Collector
	nc         *comms.Conn
	sub        *comms.Subscription
	pool       *pgxpool.Pool
	events     *events.AsyncPublisher
	servers    []*http.Server
	now        func() time.Time
}

// New wires the components. A nil upstream uses the FRED API client built
// from cfg. Connections to NATS and the audit database are made here.
func New(ctx context.Context, cfg *config.Config, up catalog.Upstream) (*Server, error) {
	s := &Server{cfg: cfg, now: time.Now}

	if up == nil {
		up = fred.NewClient(fred.Options{
			BaseURL:   cfg.FREDBaseURL,
			APIKey:    cfg.FREDAPIKey,
			Timeout:   cfg.UpstreamTimeout,
			RateLimit: cfg.UpstreamRateLimit,
			RateBurst: cfg.UpstreamRateBurst,
		})
	}

	reg, err := catalog.New(up)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to build registry: %w", logPrefix, err)
	}

	// Metrics are recorded inline; NATS and audit writes go through a queue.
	var publishers, sideChannels []events.EventPublisher

	if cfg.MetricsEnabled {
		s.metrics = metrics.NewCollector()
		publishers = append(publishers, s.metrics)
	}

	if cfg.COMMSEnabled {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.ServiceName, commsutil.ConnectOptions{})
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
		}
		s.nc = nc
		slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))
		sideChannels = append(sideChannels, events.NewCommsPublisher(nc, &events.CommsPublisherOpts{
			GlobalSubject: cfg.DispatchEventSubject,
		}))
	}

	if cfg.AuditDatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.AuditDatabaseURL, db.PoolOptions{})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("%s - failed to connect to audit database: %w", logPrefix, err)
		}
		s.pool = pool

		if cfg.RunMigrations {
			migs, err := migrations.Load(cfg.MigrationPath)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migs); err != nil {
				s.Close()
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
		sideChannels = append(sideChannels, db.NewAuditPublisher(db.NewRepository(pool), 0))
	}

	if len(sideChannels) > 0 {
		s.events = events.NewAsyncPublisher(events.NewMultiPublisher(sideChannels...), 0)
		publishers = append(publishers, s.events)
	}

	s.dispatcher = dispatcher.NewDispatcher(reg, dispatcher.Options{
		Timeout:   cfg.UpstreamTimeout,
		Policy:    cfg.Policy(),
		Publisher: events.NewMultiPublisher(publishers...),
	})
	return s, nil
}

// Dispatcher returns the shared dispatcher.
func (s *Server) Dispatcher() *dispatcher.Dispatcher {
	return s.dispatcher
}

// RESTHandler builds the REST API handler.
func (s *Server) RESTHandler() http.Handler {
	opts := rest.Options{
		Info:        s.info(),
		CORSOrigins: s.cfg.CORSAllowedOrigins,
		Ready:       s.Ready,
	}
	if s.metrics != nil {
		opts.Metrics = s.metrics.Handler()
	}
	return rest.NewHandler(s.dispatcher, opts)
}

// MCPHandler builds the MCP listener: POST /mcp plus GET /health.
func (s *Server) MCPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewHandler(s.dispatcher, mcp.ServerInfo{
		Name:    s.cfg.ServiceName,
		Version: s.cfg.ServiceVersion,
	}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		rest.WriteJSON(w, rest.HealthResponse(s.cfg.ServiceName, s.now()))
	})
	return rest.Chain(mux, rest.Recover, rest.CORS(s.cfg.CORSAllowedOrigins))
}

func (s *Server) info() rest.Info {
	return rest.Info{
		Name:        s.cfg.ServiceName,
		Description: Description,
		Version:     s.cfg.ServiceVersion,
	}
}

// Ready reports whether the optional backends are reachable.
func (s *Server) Ready(ctx context.Context) error {
	if s.nc != nil && !s.nc.IsConnected() {
		return errors.New("NATS connection is " + s.nc.Status().String())
	}
	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			return fmt.Errorf("audit database: %w", err)
		}
	}
	return nil
}

// GatewaySubject is the NATS subject the gateway answers on.
func (s *Server) GatewaySubject() (string, error) {
	if s.cfg.GatewaySubject != "" {
		return s.cfg.GatewaySubject, nil
	}
	major, err := semver.Major(s.cfg.ServiceVersion)
	if err != nil {
		return "", err
	}
	return commsutil.GatewaySubject(major), nil
}

// SubscribeComms starts answering gateway requests over NATS. It is a no-op
// when COMMS is disabled.
func (s *Server) SubscribeComms(ctx context.Context) error {
	if s.nc == nil {
		return nil
	}
	subject, err := s.GatewaySubject()
	if err != nil {
		return fmt.Errorf("%s - %w", logPrefix, err)
	}
	h := &commsHandler{dispatcher: s.dispatcher, version: s.cfg.ServiceVersion}
	sub, err := s.nc.Subscribe(subject, h.onMessage(ctx))
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, subject, err)
	}
	s.sub = sub
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, subject))
	return nil
}

// Listen binds the listeners for mode and serves them in the background.
func (s *Server) Listen(mode Mode) error {
	type listener struct {
		name    string
		addr    string
		handler http.Handler
	}
	var want []listener
	if mode.serves(ModeREST) {
		want = append(want, listener{"REST", s.cfg.RESTAddr(), s.RESTHandler()})
	}
	if mode.serves(ModeMCP) {
		want = append(want, listener{"MCP", s.cfg.MCPAddr(), s.MCPHandler()})
	}

	for _, l := range want {
		ln, err := net.Listen("tcp", l.addr)
		if err != nil {
			return fmt.Errorf("%s - failed to listen on %s: %w", logPrefix, l.addr, err)
		}
		srv := &http.Server{Handler: l.handler, ReadHeaderTimeout: 10 * time.Second}
		s.servers = append(s.servers, srv)

		name := l.name
		go func() {
			slog.Info(fmt.Sprintf("%s - %s server listening on %s", logPrefix, name, ln.Addr()))
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error(fmt.Sprintf("%s - %s server error: %v", logPrefix, name, err))
			}
		}()
	}
	return nil
}

// Shutdown stops accepting work, drains in-flight requests and closes connections.
func (s *Server) Shutdown(ctx context.Context) {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			slog.Warn(fmt.Sprintf("%s - unsubscribe: %v", logPrefix, err))
		}
	}
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(ctx); err != nil {
			slog.Warn(fmt.Sprintf("%s - dispatch events not drained: %v", logPrefix, err))
		}
	}
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			slog.Warn(fmt.Sprintf("%s - NATS drain: %v", logPrefix, err))
		}
		s.nc = nil
	}
	s.Close()
}

// Close releases connections without draining.
func (s *Server) Close() {
	if s.events != nil {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		_ = s.events.Close(cancelled)
	}
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

// SetupLogging installs the default slog text handler at the given level.
func SetupLogging(level string) error {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// Run starts the server in mode, blocks until ctx is cancelled or a shutdown
// signal arrives, then cleans up.
func Run(ctx context.Context, cfg *config.Config, mode Mode) error {
	if err := SetupLogging(cfg.LogLevel); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting %s %s (mode=%s)", logPrefix, cfg.ServiceName, cfg.ServiceVersion, mode))
	if cfg.FREDAPIKey == "" {
		slog.Warn(fmt.Sprintf("%s - FRED_API_KEY is not set; upstream calls will be rejected. Get a key at %s", logPrefix, APIKeyURL))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := New(ctx, cfg, nil)
	if err != nil {
		return err
	}

	if err := s.SubscribeComms(ctx); err != nil {
		s.Close()
		return err
	}
	if err := s.Listen(mode); err != nil {
		s.Shutdown(context.Background())
		return err
	}

	slog.Info(fmt.Sprintf("%s - %s is ready", logPrefix, cfg.ServiceName))
	<-ctx.Done()
	slog.Info(fmt.Sprintf("%s - Shutting down", logPrefix))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	s.Shutdown(shutdownCtx)

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}
