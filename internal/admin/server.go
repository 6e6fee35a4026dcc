package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fireops-sim/internal/config"
	"fireops-sim/internal/drone"
	"fireops-sim/internal/fsm"
	"fireops-sim/internal/incident"
	"fireops-sim/internal/sim"
	"fireops-sim/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	Sim     *sim.Simulator
	tpl     *template.Template
	metrics http.Handler
	mux     *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

// NewServer builds the admin UI. metrics serves /metrics; nil uses the
// default Prometheus registry.
func NewServer(sim *sim.Simulator, metrics http.Handler) *Server {
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{Sim: sim, tpl: tpl, metrics: metrics, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /agents", s.handleAgents)
	s.mux.HandleFunc("GET /agents/{id}", s.handleAgent)
	s.mux.HandleFunc("GET /dispatcher", s.handleDispatcher)
	s.mux.HandleFunc("GET /summary", s.handleSummary)
	s.mux.HandleFunc("GET /responses", s.handleResponses)
	s.mux.HandleFunc("POST /toggle-faults", s.handleToggleFaults)
	s.mux.HandleFunc("POST /shutdown", s.handleShutdown)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics)
}

// Handler returns the routed admin handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves the admin UI on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("admin response encode failed", "err", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Chaos     bool
		State     telemetry.SimulationStateRow
		Drones    []drone.Snapshot
		Fleets    []config.Fleet
		Responses []incident.Response
	}{
		Chaos:     s.Sim.Chaos(),
		State:     s.Sim.State(),
		Drones:    s.Sim.Drones(),
		Fleets:    s.Sim.GetConfig().Fleets,
		Responses: s.Sim.Recent(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		slog.Error("admin template failed", "err", err)
	}
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Drones())
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	d, ok := s.Sim.Drone(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown drone"})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		drone.Snapshot
		Attributes  drone.Attributes `json:"attributes"`
		Transitions []fsm.Transition `json:"transitions"`
	}{d.Snapshot(), d.Attributes(), d.Transitions()})
}

func (s *Server) handleDispatcher(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Snapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Summary())
}

func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Responses []incident.Response    `json:"responses"`
		Faults    []incident.FaultRecord `json:"faults"`
	}{s.Sim.Recent(), s.Sim.FaultLog()})
}

func (s *Server) handleToggleFaults(w http.ResponseWriter, r *http.Request) {
	state := s.Sim.ToggleChaos()
	writeJSON(w, http.StatusOK, map[string]any{"faults": state})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.Sim.RequestShutdown()
	writeJSON(w, http.StatusAccepted, map[string]any{"shutdown": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
