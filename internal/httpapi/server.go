package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/service"
	"github.com/Darobeats/Chequi-sub000/internal/chequi/types"
)

type Dependencies struct {
	Logger     *log.Logger
	Addr       string
	Processor  *service.Processor
	Reconciler *service.Reconciler
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	processor  *service.Processor
	reconciler *service.Reconciler
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:     d.Logger,
		mux:        mux,
		processor:  d.Processor,
		reconciler: d.Reconciler,
	}

	mux.HandleFunc("POST /v1/scan", s.handleScan)
	mux.HandleFunc("POST /v1/offline/enqueue", s.handleEnqueue)
	mux.HandleFunc("POST /v1/sync", s.handleSync)
	mux.HandleFunc("GET /v1/pending", s.handlePending)
	mux.HandleFunc("POST /v1/dismiss", s.handleDismiss)

	handler := requestLogger(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	outcome, err := s.processor.Process(r.Context(), req)
	if err != nil {
		s.logger.Printf("scan error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	if outcome == nil {
		// Session busy or duplicate frame; the device shows nothing new.
		writeJSON(w, http.StatusOK, map[string]bool{"ignored": true})
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req types.EnqueueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pending, err := s.reconciler.Enqueue(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyPayload) {
			writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())
			return
		}
		s.logger.Printf("enqueue error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, types.EnqueueResponse{Queued: true, Pending: pending})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.reconciler.Sync(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, "sync_in_progress", err.Error())
			return
		}
		s.logger.Printf("sync error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	n, err := s.reconciler.PendingCount(r.Context())
	if err != nil {
		s.logger.Printf("pending count error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, types.PendingResponse{Pending: n})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	var req types.DismissRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DeviceLabel == "" {
		writeError(w, http.StatusBadRequest, "invalid_device_label", "device_label is required")
		return
	}

	s.processor.Dismiss(req.DeviceLabel)
	writeJSON(w, http.StatusOK, map[string]bool{"dismissed": true})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}
