package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tooltrack-cli/internal/curation"
	"github.com/sells-group/tooltrack-cli/internal/model"
	"github.com/sells-group/tooltrack-cli/internal/monitoring"
	"github.com/sells-group/tooltrack-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server for curation requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		curator := curation.FromConfig(st, cfg.Curation)
		collector := monitoring.NewCollector(st)

		srv := &server{
			store:     st,
			curator:   curator,
			collector: collector,
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", srv.handleHealth)
		r.Get("/metrics", srv.handleMetrics)
		r.Post("/webhook/curate", srv.handleCurate)
		r.Route("/tools/{tool}", func(r chi.Router) {
			r.Get("/current", srv.handleCurrent)
			r.Get("/versions", srv.handleVersions)
			r.Get("/versions/{number}", srv.handleVersion)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	store     store.Store
	curator   *curation.Curator
	collector *monitoring.Collector

	// toolLocks serializes curations per tool: the store requires at most
	// one in-flight curation per slug, while distinct tools may proceed in
	// parallel.
	toolLocks sync.Map
}

func (s *server) lockTool(slug string) func() {
	mu, _ := s.toolLocks.LoadOrStore(slug, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	lookback := cfg.Alerts.LookbackHours
	if lookback <= 0 {
		lookback = 24
	}
	snap, err := s.collector.Collect(r.Context(), lookback)
	if err != nil {
		zap.L().Error("metrics collection failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "metrics collection failed"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleCurate accepts a pre-collected document for a tool and curates it
// synchronously. The full CurationResult is returned, including partial
// and failed outcomes.
func (s *server) handleCurate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tool     string          `json:"tool"`
		Document *model.Document `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Tool == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tool is required"})
		return
	}
	if req.Document == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document is required"})
		return
	}

	unlock := s.lockTool(req.Tool)
	defer unlock()

	result, err := s.curator.Curate(r.Context(), req.Tool, req.Document)
	if err != nil {
		// Document faults are the caller's problem; store and
		// infrastructure faults are ours.
		status := http.StatusInternalServerError
		if errors.Is(err, curation.ErrInvalidDocument) {
			status = http.StatusUnprocessableEntity
		}
		zap.L().Error("webhook curation failed",
			zap.String("tool", req.Tool),
			zap.Error(err),
		)
		writeJSON(w, status, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")

	doc, err := s.store.GetCurrent(r.Context(), tool)
	if err != nil {
		zap.L().Error("get current failed", zap.String("tool", tool), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store error"})
		return
	}
	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no current snapshot"})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *server) handleVersions(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")

	versions, err := s.store.ListVersions(r.Context(), tool)
	if err != nil {
		zap.L().Error("list versions failed", zap.String("tool", tool), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store error"})
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *server) handleVersion(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid version number"})
		return
	}

	version, err := s.store.GetVersion(r.Context(), tool, number)
	if err != nil {
		zap.L().Error("get version failed",
			zap.String("tool", tool),
			zap.Int("number", number),
			zap.Error(err),
		)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "version not found"})
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}
