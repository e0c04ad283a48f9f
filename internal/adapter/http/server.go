// Package http exposes the service's HTTP surface: operational endpoints,
// the JSON API over the ingestion pipeline, and the websocket chat.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perihelion-labs/neo-watch/internal/chat"
	"github.com/perihelion-labs/neo-watch/internal/domain"
	"github.com/perihelion-labs/neo-watch/internal/pipeline"
)

// Pipeline is the ingest/classify/alert surface the API serves.
type Pipeline interface {
	IngestRange(ctx context.Context, startDate, endDate string) (pipeline.IngestResult, error)
	ClassifyStored(ctx context.Context) ([]domain.RiskRecord, error)
	PersistRisks(ctx context.Context, mode pipeline.PersistMode) (pipeline.PersistResult, error)
	ClassifyByDate(ctx context.Context, date string) ([]domain.ApproachRisk, error)
	Alerts(ctx context.Context) ([]domain.RiskRecord, error)
	CheckReadiness(ctx context.Context) error
}

// ChatHub is the live chat surface served over the websocket route.
type ChatHub interface {
	Join() *chat.Member
	Leave(m *chat.Member)
	Receive(raw string) (domain.ChatMessage, error)
	History() ([]domain.ChatMessage, error)
}

// Server exposes the HTTP API, the chat websocket, and the operational
// endpoints.
type Server struct {
	httpServer *http.Server
	pipeline   Pipeline
	hub        ChatHub
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewServer wires every route onto a fresh mux.
func NewServer(addr string, p Pipeline, hub ChatHub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		pipeline: p,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/neo/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/neo/by-date", s.handleByDate)
	mux.HandleFunc("GET /api/risks", s.handleRisks)
	mux.HandleFunc("POST /api/risks/run", s.handleRisksRun)
	mux.HandleFunc("POST /api/risks/rebuild", s.handleRisksRebuild)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)

	mux.HandleFunc("GET /ws/chat", s.handleChatSocket)
	mux.HandleFunc("GET /api/chat/history", s.handleChatHistory)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.pipeline.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	if !validDate(startDate) || !validDate(endDate) {
		writeError(w, http.StatusBadRequest, "start_date and end_date must be YYYY-MM-DD")
		return
	}

	result, err := s.pipeline.IngestRange(r.Context(), startDate, endDate)
	if err != nil {
		s.writePipelineError(w, "ingest", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if !validDate(date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	results, err := s.pipeline.ClassifyByDate(r.Context(), date)
	if err != nil {
		s.writePipelineError(w, "classify by date", err)
		return
	}
	if results == nil {
		results = []domain.ApproachRisk{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleRisks(w http.ResponseWriter, r *http.Request) {
	records, err := s.pipeline.ClassifyStored(r.Context())
	if err != nil {
		s.writePipelineError(w, "classify stored", err)
		return
	}
	if records == nil {
		records = []domain.RiskRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRisksRun(w http.ResponseWriter, r *http.Request) {
	s.persistRisks(w, r, pipeline.ModeAppend)
}

func (s *Server) handleRisksRebuild(w http.ResponseWriter, r *http.Request) {
	s.persistRisks(w, r, pipeline.ModeReplace)
}

func (s *Server) persistRisks(w http.ResponseWriter, r *http.Request, mode pipeline.PersistMode) {
	result, err := s.pipeline.PersistRisks(r.Context(), mode)
	if err != nil {
		s.writePipelineError(w, "persist risks", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	records, err := s.pipeline.Alerts(r.Context())
	if err != nil {
		s.writePipelineError(w, "list alerts", err)
		return
	}
	if records == nil {
		records = []domain.RiskRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// chatHistoryEntry is the public history view: a wall-clock minute is enough
// for the chat UI, the full timestamp stays internal.
type chatHistoryEntry struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
	Time   string `json:"time"` // HH:MM, UTC
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := s.hub.History()
	if err != nil {
		s.logger.Error("chat history read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat history unavailable")
		return
	}

	entries := make([]chatHistoryEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, chatHistoryEntry{
			Sender: msg.Sender,
			Body:   msg.Body,
			Time:   msg.At.UTC().Format("15:04"),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleChatSocket upgrades the connection and bridges it to the hub: a
// writer goroutine drains the member's outbound channel while the read loop
// feeds inbound lines to the hub. Either side failing tears the member down.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	member := s.hub.Join()
	defer func() {
		s.hub.Leave(member)
		conn.Close()
	}()

	go func() {
		for line := range member.Outbound() {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				s.logger.Debug("chat write failed", "member_id", member.ID(), "error", err)
				conn.Close()
				return
			}
		}
		// Outbound closed: the hub dropped this member.
		conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck // connection is going away
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "delivery backlog"))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("chat member disconnected", "member_id", member.ID(), "error", err)
			return
		}
		if _, err := s.hub.Receive(string(data)); err != nil {
			s.logger.Error("chat message rejected", "member_id", member.ID(), "error", err)
		}
	}
}

func (s *Server) writePipelineError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		s.logger.Warn("upstream feed unavailable", "op", op, "error", err)
		writeError(w, http.StatusBadGateway, "upstream feed unavailable")
		return
	}
	s.logger.Error("pipeline operation failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
