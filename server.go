package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"i4.energy/across/sbdgw/jspr"
	"i4.energy/across/sbdgw/modem"
)

// Server handles incoming HTTP requests for interacting with the
// configured modem instance. Every modem call goes through Modem.Do, so
// Modem.Loop must be running.
//
// Blocking modem queries drop unsolicited frames that arrive while they
// wait, so /signal and /status answer from cached values where they can.
type Server struct {
	Logger *slog.Logger
	Modem  *modem.Modem

	// hardware is fetched on the first /status of a session; it is only
	// touched inside Modem.Do
	hardware *jspr.HardwareInfo

	router chi.Router
}

// NewServer builds a Server and its routes.
func NewServer(logger *slog.Logger, m *modem.Modem) *Server {
	s := &Server{
		Logger: logger,
		Modem:  m,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Route("/messages", func(r chi.Router) {
		r.Post("/", s.handleSend)
		r.Get("/", s.handleReceive)
	})
	r.Get("/signal", s.handleSignal)
	r.Get("/status", s.handleStatus)

	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	s.sendJSON(w, ErrorResponse{Message: message}, statusCode)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Failed to write response", "error", err)
	}
}

// statusFor maps modem errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, modem.ErrInvalidTopic),
		errors.Is(err, modem.ErrNotProvisioned),
		errors.Is(err, modem.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, modem.ErrNotOpen),
		errors.Is(err, modem.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, modem.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// SendRequest queues a message. Data is base64 and takes precedence over
// Message. Topic defaults to the raw topic.
type SendRequest struct {
	Topic   uint16 `json:"topic"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// handleSend processes incoming HTTP POST requests to queue outgoing messages
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	payload := []byte(req.Message)
	if req.Data != "" {
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			s.sendError(w, "'data' must be base64: "+err.Error(), http.StatusBadRequest)
			return
		}
		payload = data
	}
	if len(payload) == 0 {
		s.sendError(w, "one of 'message' or 'data' is required", http.StatusBadRequest)
		return
	}
	if req.Topic == 0 {
		req.Topic = modem.TopicRaw
	}

	ctx := r.Context()
	var queued int
	err := s.Modem.Do(ctx, func(m *modem.Modem) error {
		if err := m.SendMessageAsync(ctx, req.Topic, payload); err != nil {
			return err
		}
		queued = m.QueueStatus().Outgoing
		return nil
	})
	if err != nil {
		s.Logger.Error("Failed to queue message", "error", err, "topic", req.Topic)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}

	s.Logger.Info("Message queued", "topic", req.Topic, "length", len(payload), "queued", queued)

	type SendResponse struct {
		Queued int `json:"queued"`
	}
	s.sendJSON(w, SendResponse{Queued: queued}, http.StatusAccepted)
}

// MessageResponse is a received message. Message is set when the payload
// is valid UTF-8.
type MessageResponse struct {
	ID      uint8  `json:"id"`
	Topic   uint16 `json:"topic"`
	Data    []byte `json:"data"`
	Message string `json:"message,omitempty"`
}

// handleReceive hands out the oldest completed incoming message and frees it.
func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	var (
		msg modem.Message
		ok  bool
	)
	err := s.Modem.Do(r.Context(), func(m *modem.Modem) error {
		if msg, ok = m.ReceiveMessageAsync(); !ok {
			return nil
		}
		return m.AcknowledgeReceiveHead()
	})
	if err != nil {
		s.Logger.Error("Failed to read message", "error", err)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := MessageResponse{ID: msg.ID, Topic: msg.Topic, Data: msg.Data}
	if utf8.Valid(msg.Data) {
		resp.Message = string(msg.Data)
	}
	s.sendJSON(w, resp, http.StatusOK)
}

// handleSignal reports the last signal the modem pushed and only asks the
// modem when it has not reported one this session.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var bars int
	err := s.Modem.Do(r.Context(), func(m *modem.Modem) error {
		if state, ok := m.LastConstellationState(); ok {
			bars = int(state.SignalBars)
			return nil
		}
		var err error
		bars, err = m.Signal(r.Context())
		return err
	})
	if err != nil {
		s.Logger.Error("Failed to read signal", "error", err)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}

	type SignalResponse struct {
		Bars int `json:"bars"`
	}
	s.sendJSON(w, SignalResponse{Bars: bars}, http.StatusOK)
}

// StatusResponse describes the session. Hardware is omitted while the
// session is closed.
type StatusResponse struct {
	State    string             `json:"state"`
	Queues   QueueResponse      `json:"queues"`
	Hardware *jspr.HardwareInfo `json:"hardware,omitempty"`
}

type QueueResponse struct {
	Outgoing       int  `json:"outgoing"`
	Incoming       int  `json:"incoming"`
	OutgoingLocked bool `json:"outgoing_locked"`
	IncomingLocked bool `json:"incoming_locked"`
}

// handleStatus reports the session and queue state. The hardware block is
// read from the modem once per session, so board_temp is as of that read.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	err := s.Modem.Do(r.Context(), func(m *modem.Modem) error {
		q := m.QueueStatus()
		resp.State = m.State()
		resp.Queues = QueueResponse(q)
		if resp.State != modem.StateOpen {
			s.hardware = nil
			return nil
		}

		if s.hardware == nil {
			info, err := m.HardwareInfo(r.Context())
			if err != nil {
				return err
			}
			s.hardware = &info
		}
		hw := *s.hardware
		resp.Hardware = &hw
		return nil
	})
	if err != nil {
		s.Logger.Error("Failed to read status", "error", err)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	s.sendJSON(w, resp, http.StatusOK)
}
