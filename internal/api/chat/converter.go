package chat

import (
	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/entity"
)

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type phasePayload struct {
	Phase string `json:"phase"`
}

// donePayload ends a message stream. Superseded is set when a later send or
// a reset took over the session before this send's reply was committed.
type donePayload struct {
	Phase      string `json:"phase,omitempty"`
	Superseded bool   `json:"superseded,omitempty"`
}

type deltaPayload struct {
	Delta string `json:"delta"`
	Text  string `json:"text"`
}

type statusPayload struct {
	Status string `json:"status"`
}

func toSessionResponse(s chatcore.Snapshot) *entity.ChatSessionResponse {
	resp := &entity.ChatSessionResponse{
		ID:          s.ID,
		Phase:       string(s.Phase),
		Messages:    s.Messages,
		Input:       s.Input,
		Status:      s.Status,
		Files:       s.Files,
		Listening:   s.Listening,
		VoiceInput:  s.VoiceInput,
		VoiceOutput: s.VoiceOutput,
	}
	if resp.Messages == nil {
		resp.Messages = []entity.ChatMessage{}
	}
	if resp.Files == nil {
		resp.Files = []entity.FileSelection{}
	}
	return resp
}

// toStreamEvent maps a session event to an SSE event name and payload.
// Events the browser does not render are skipped.
func toStreamEvent(ev chatcore.Event) (string, any, bool) {
	switch ev.Kind {
	case chatcore.EventPhase:
		return "phase", phasePayload{Phase: string(ev.Phase)}, true
	case chatcore.EventDelta:
		return "delta", deltaPayload{Delta: ev.Delta, Text: ev.Partial}, true
	case chatcore.EventMessage:
		if ev.Message == nil {
			return "", nil, false
		}
		return "message", ev.Message, true
	case chatcore.EventStatus:
		return "status", statusPayload{Status: ev.Status}, true
	default:
		return "", nil, false
	}
}
