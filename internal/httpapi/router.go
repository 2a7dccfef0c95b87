// Package httpapi exposes the webhook ingress and the operational endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edgard/socialbot/internal/logger"
	"github.com/edgard/socialbot/internal/message"
	"github.com/edgard/socialbot/internal/processor"
)

const maxBodyBytes = 1 << 20

// MessageProcessor handles one inbound message.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg *message.Message) (*processor.Result, error)
}

// Deps provides the router's collaborators.
type Deps struct {
	Logger        *slog.Logger
	Processor     MessageProcessor
	Metrics       http.Handler
	AllowedOrigin string
}

// webhookRequest is the inbound envelope.
type webhookRequest struct {
	Data *message.Message `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var errMissingData = errors.New("webhook payload has no data")

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger.With("component", "http")
	origin := deps.AllowedOrigin
	if origin == "" {
		origin = "*"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)

	r.Route("/webhook", func(r chi.Router) {
		r.Use(cors(origin))
		r.Post("/", webhookHandler(log, deps.Processor))
		r.Options("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Allow", "POST, OPTIONS")
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}

func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			next.ServeHTTP(w, r)
		})
	}
}

func webhookHandler(log *slog.Logger, proc MessageProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req webhookRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			internalError(ctx, w, log, err)
			return
		}
		if req.Data == nil {
			internalError(ctx, w, log, errMissingData)
			return
		}

		log.DebugContext(ctx, "Received webhook message",
			"platform", req.Data.Platform,
			"preview", logger.TruncateString(req.Data.Text, 50))

		res, err := proc.ProcessMessage(ctx, req.Data)
		if err != nil {
			internalError(ctx, w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func internalError(ctx context.Context, w http.ResponseWriter, log *slog.Logger, err error) {
	log.ErrorContext(ctx, "Webhook request failed", "error", err, "request_id", middleware.GetReqID(ctx))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
