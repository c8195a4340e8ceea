package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/pkg/logger"
	"github.com/finestate/hub-backend/internal/pkg/response"
)

const maxMessageBody = 4 << 20

type Handler struct {
	usecase ChatUsecase
}

func NewHandler(usecase ChatUsecase) *Handler {
	return &Handler{
		usecase: usecase,
	}
}

// CreateSession handles POST /api/chat/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateChatSession")

	s, err := h.usecase.CreateSession(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Created(w, createSessionResponse{SessionID: s.ID()})
}

// GetSession handles GET /api/chat/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logger.WithSession(logger.WithAction(r.Context(), "GetChatSession"), id)

	s, err := h.usecase.GetSession(ctx, id)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toSessionResponse(s.Snapshot()))
}

// SendMessage handles POST /api/chat/sessions/{id}/messages.
// The reply is streamed back as server-sent events until the session is idle.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logger.WithSession(logger.WithAction(r.Context(), "SendChatMessage"), id)

	var req entity.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody)).Decode(&req); err != nil {
		ctxzap.Warn(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, turn, err := h.usecase.SendMessage(ctx, id, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	defer sub.Close()

	stream := newSSEWriter(w)
	idle := donePayload{Phase: string(chatcore.PhaseIdle)}

	for {
		select {
		case <-ctx.Done():
			ctxzap.Debug(ctx, "client went away before the reply finished")
			return

		case <-sub.Done():
			_ = stream.send("done", idle)
			return

		case ev := <-sub.Events():
			// a later send or a reset owns the session now
			if ev.Kind == chatcore.EventReset || ev.Turn > turn {
				_ = stream.send("done", donePayload{Superseded: true})
				return
			}
			if ev.Turn != turn {
				continue
			}

			name, payload, ok := toStreamEvent(ev)
			if !ok {
				continue
			}
			if err := stream.send(name, payload); err != nil {
				ctxzap.Debug(ctx, "stream write failed", zap.Error(err))
				return
			}

			if ev.Kind == chatcore.EventPhase && ev.Phase == chatcore.PhaseIdle {
				_ = stream.send("done", idle)
				return
			}
		}
	}
}

// ResetSession handles DELETE /api/chat/sessions/{id}/messages
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logger.WithSession(logger.WithAction(r.Context(), "ResetChatSession"), id)

	if err := h.usecase.ResetSession(ctx, id); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// ExportTranscript handles GET /api/chat/sessions/{id}/transcript?format=
func (h *Handler) ExportTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logger.WithSession(logger.WithAction(r.Context(), "ExportChatTranscript"), id)

	format := entity.ResultFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.FormatMarkdown
	}

	out, err := h.usecase.ExportTranscript(ctx, id, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Attachment(w, out.ContentType, out.Filename, out.Data)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrChatSessionNotFound), errors.Is(err, entity.ErrChatSessionClosed):
		response.Error(w, http.StatusNotFound, "chat session not found")
	case errors.Is(err, entity.ErrEmptyMessage):
		response.Error(w, http.StatusBadRequest, "message or files required")
	case errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrInvalidFormat):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		ctxzap.Error(ctx, "chat request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
