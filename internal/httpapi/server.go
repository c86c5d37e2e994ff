package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xlorad/internal/manager"
	"xlorad/pkg/types"
)

// Service is what the HTTP layer needs from the model manager.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Complete(ctx context.Context, req types.ChatCompletionRequest) (manager.Completion, error)
	Stream(ctx context.Context, req types.ChatCompletionRequest, w io.Writer, flusher func()) error
	Ready() bool
}

// NewMux builds the router: the chat completion endpoint, model listings,
// status and health probes, and the Prometheus scrape endpoint.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Post("/v1/chat/completions", chatCompletionsHandler(svc))

	r.Get("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		list := types.ModelList{Object: "list", Data: []types.ModelListEntry{}}
		for _, m := range svc.ListModels() {
			list.Data = append(list.Data, types.ModelListEntry{
				ID:      m.ID,
				Object:  "model",
				Created: m.Created,
				OwnedBy: "xlorad",
			})
		}
		writeJSON(w, list)
	})

	// Verbose listing with source paths and adapter details.
	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: svc.ListModels()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func chatCompletionsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// Oversized bodies also land here; keep the message uniform.
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.Messages) == 0 {
			writeJSONError(w, http.StatusBadRequest, "messages are required")
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		logChatStart(r, lvl, req)

		// Derive from the request context so request-scoped values survive,
		// and cancel when the server shuts down.
		ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
		defer cancel()
		if chatTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, chatTimeout)
			defer tcancel()
		}

		if req.Stream {
			streamCompletion(ctx, svc, w, r, req, lvl, start)
			return
		}

		out, err := svc.Complete(ctx, req)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := statusForError(err)
			writeJSONError(w, status, err.Error())
			logChatEnd(r, lvl, status, start, err)
			return
		}
		resp := types.ChatCompletionResponse{
			ID:      "chatcmpl-" + uuid.NewString(),
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   out.ModelID,
			Choices: []types.Choice{{
				Index:        0,
				Message:      types.ChatMessage{Role: "assistant", Content: out.Text},
				FinishReason: out.FinishReason,
			}},
			Usage: out.Usage,
		}
		writeJSON(w, resp)
		logChatEnd(r, lvl, http.StatusOK, start, nil)
	}
}

func streamCompletion(ctx context.Context, svc Service, w http.ResponseWriter, r *http.Request, req types.ChatCompletionRequest, lvl LogLevel, start time.Time) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	writer := io.Writer(w)
	if lvl >= LevelDebug {
		writer = io.MultiWriter(w, &loggingLineWriter{})
	}
	if err := svc.Stream(ctx, req, writer, flush); err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		// Error mapping only works before the first token went out; after
		// that the status line is already committed.
		status := statusForError(err)
		writeJSONError(w, status, err.Error())
		logChatEnd(r, lvl, status, start, err)
		return
	}
	logChatEnd(r, lvl, http.StatusOK, start, nil)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
