// Package web serves room models and the device/participant roster over HTTP.
package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/scape/internal/config"
	"github.com/Faultbox/scape/internal/roster"
	"github.com/Faultbox/scape/pkg/glb"
)

// Options tunes optional server behavior.
type Options struct {
	AccessLog io.Writer // Apache-style access lines; nil disables them
}

// Server is the scene HTTP API.
type Server struct {
	cfg       config.ServerConfig
	roomsDir  string
	store     *roster.Store
	processor *glb.Processor
	upgrader  websocket.Upgrader
	metrics   *metrics
	log       *zap.Logger
	opts      Options

	closing chan struct{} // Closed on shutdown to end websocket streams
}

// New creates a server for cfg backed by store.
func New(cfg *config.Config, store *roster.Store, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	p := glb.NewProcessor(log.Named("glb"))
	p.MaxFileSize = cfg.MaxFileBytes()

	return &Server{
		cfg:       cfg.Server,
		roomsDir:  cfg.Rooms.Dir,
		store:     store,
		processor: p,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: newMetrics(store),
		log:     log,
		opts:    opts,
		closing: make(chan struct{}),
	}
}

// Handler returns the routed handler with recovery and access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	route := func(tpl string, h http.HandlerFunc) http.Handler {
		return s.metrics.instrument(tpl, h)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/rooms/{room}/model", handlers.CompressHandler(route("model", s.handleModel))).Methods(http.MethodGet)
	api.Handle("/{kind}", route("list", s.handleList)).Methods(http.MethodGet)
	api.Handle("/{kind}/{id}", route("get", s.handleGet)).Methods(http.MethodGet)
	api.Handle("/{kind}/{id}", route("put", s.handlePut)).Methods(http.MethodPut)
	api.Handle("/{kind}/{id}", route("delete", s.handleDelete)).Methods(http.MethodDelete)

	r.Handle("/ws/roster", promhttp.InstrumentHandlerCounter(
		s.metrics.requests.MustCurryWith(prometheus.Labels{"route": "stream"}),
		http.HandlerFunc(s.handleRosterStream),
	)).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", errors.Errorf("no route for %s %s", r.Method, r.URL.Path))
	})

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	if s.opts.AccessLog != nil {
		h = handlers.LoggingHandler(s.opts.AccessLog, h)
	}
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.log.Named("recovery"))),
		handlers.PrintRecoveryStack(true),
	)(h)
	return h
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		ErrorLog:     zap.NewStdLog(s.log.Named("http")),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serving http")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		close(s.closing)

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.log.Info("shutting down", zap.Duration("timeout", timeout))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutting down")
		}
		return nil
	})
	return g.Wait()
}
