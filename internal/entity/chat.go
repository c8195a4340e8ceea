package entity

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage is a single finalized entry of a conversation.
type ChatMessage struct {
	ID     string    `json:"id"`
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// FileSelection is a document attached to the next outgoing message.
// Text holds the extracted content, not the raw bytes.
type FileSelection struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// ReplyRequest is everything a reply source may use to answer a message.
type ReplyRequest struct {
	Message string
	Files   []FileSelection
	History []ChatMessage
}

// BackendSendMessageRequest is the wire body of the chat backend's send_message endpoint.
type BackendSendMessageRequest struct {
	Message string          `json:"message"`
	Files   []FileSelection `json:"files"`
}

type BackendSendMessageResponse struct {
	Reply string `json:"reply"`
	Text  string `json:"text"`
}

type BackendUploadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
}

// CannedReply maps keywords to a scripted answer for the offline backend.
type CannedReply struct {
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

type CannedReplies struct {
	Fallback string        `yaml:"fallback"`
	Replies  []CannedReply `yaml:"replies"`
}

// SendMessageRequest is the body of POST /api/chat/sessions/{id}/messages.
type SendMessageRequest struct {
	Message string          `json:"message"`
	Files   []FileSelection `json:"files"`
}

type ChatSessionResponse struct {
	ID          string          `json:"id"`
	Phase       string          `json:"phase"`
	Messages    []ChatMessage   `json:"messages"`
	Input       string          `json:"input"`
	Status      string          `json:"status,omitempty"`
	Files       []FileSelection `json:"files"`
	Listening   bool            `json:"listening"`
	VoiceInput  bool            `json:"voiceInput"`
	VoiceOutput bool            `json:"voiceOutput"`
}

type ASRResponse struct {
	Text string `json:"text"`
}
