// Package server exposes the capture session over HTTP: health, sensor
// status and control, Prometheus metrics and a websocket record stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/luki/sensorapp/internal/capture"
	"github.com/luki/sensorapp/internal/metrics"
	"github.com/luki/sensorapp/internal/sensor"
)

const shutdownTimeout = 5 * time.Second

// Server serves one capture session.
type Server struct {
	session *capture.Session
	hub     *Hub
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New returns a server. hub and m may be nil, which disables /stream and
// /metrics respectively.
func New(session *capture.Session, hub *Hub, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		session: session,
		hub:     hub,
		metrics: m,
		logger:  logger.With(zap.String("component", "http")),
	}
}

// Router returns the bare route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/sensors", s.listSensors).Methods(http.MethodGet)
	r.HandleFunc("/sensors/{type}", s.getSensor).Methods(http.MethodGet)
	r.HandleFunc("/sensors/{type}/start", s.control(true)).Methods(http.MethodPost)
	r.HandleFunc("/sensors/{type}/stop", s.control(false)).Methods(http.MethodPost)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	if s.hub != nil {
		r.HandleFunc("/stream", s.hub.ServeWS).Methods(http.MethodGet)
	}
	return r
}

// Handler returns the route table wrapped with panic recovery and access
// logging.
func (s *Server) Handler() http.Handler {
	access := zap.NewStdLog(s.logger).Writer()
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger)),
		handlers.PrintRecoveryStack(false),
	)
	return recovery(handlers.LoggingHandler(access, s.Router()))
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", zap.String("addr", addr))
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

type healthResponse struct {
	Status    string `json:"status"`
	Session   string `json:"session"`
	Reporting int    `json:"reporting"`
	Sensors   int    `json:"sensors"`
	Clients   int    `json:"streamClients"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Session: s.session.ID}
	for _, st := range s.session.Status() {
		resp.Sensors++
		if st.Reporting {
			resp.Reporting++
		}
	}
	if s.hub != nil {
		resp.Clients = s.hub.Clients()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listSensors(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) getSensor(w http.ResponseWriter, r *http.Request) {
	sn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, status(sn))
}

func (s *Server) control(start bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sn, ok := s.lookup(w, r)
		if !ok {
			return
		}
		if start {
			sn.StartReporting()
		} else {
			sn.StopReporting()
		}
		st := status(sn)
		s.logger.Info("sensor control",
			zap.String("sensor", st.Type),
			zap.Bool("start", start),
			zap.Bool("reporting", st.Reporting))
		// An unavailable sensor stays idle; that is reported, not an error.
		s.writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (sensor.Sensor, bool) {
	name := mux.Vars(r)["type"]
	t, err := sensor.ParseType(name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	sn, ok := s.session.Lookup(t)
	if !ok {
		s.writeError(w, http.StatusNotFound, t.String()+" is not part of this session")
		return nil, false
	}
	return sn, true
}

func status(sn sensor.Sensor) capture.Status {
	return capture.Status{
		Type:      sn.Type().String(),
		Available: sn.IsAvailable(),
		Reporting: sn.IsReporting(),
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response failed", zap.Error(err))
	}
}
