package protocols

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"switchboard-hq/switchboard/pkg/proxy/types"
)

// MessagesPath is the HTTP path served by the Messages adapter.
const MessagesPath = "/v1/messages"

// messagesRequest is the accepted subset of the Anthropic Messages request
// schema. Unknown fields (system, max_tokens, temperature, ...) are tolerated
// and discarded.
type messagesRequest struct {
	Model    string             `json:"model"`
	Messages []anthropicMessage `json:"messages"`
	Stream   bool               `json:"stream"`
}

// anthropicMessage is a single message. Content may be a string or an array
// of content blocks ({type:"text", text:...}).
type anthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// messagesResponse is the non-streaming response shape.
type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      messagesUsage  `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// messagesUsage is the zeroed placeholder; the proxy counts no tokens.
type messagesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Streaming event payloads.

type messageStartEvent struct {
	Type    string           `json:"type"`
	Message messagesResponse `json:"message"`
}

type contentBlockStartEvent struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock contentBlock `json:"content_block"`
}

type contentBlockDeltaEvent struct {
	Type  string    `json:"type"`
	Index int       `json:"index"`
	Delta textDelta `json:"delta"`
}

type textDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type contentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

type messageDeltaEvent struct {
	Type  string        `json:"type"`
	Delta stopDelta     `json:"delta"`
	Usage messagesUsage `json:"usage"`
}

type stopDelta struct {
	StopReason string `json:"stop_reason"`
}

type messageStopEvent struct {
	Type string `json:"type"`
}

// MessagesAdapter implements the Anthropic Messages wire format.
type MessagesAdapter struct{}

// NewMessagesAdapter creates the Messages adapter.
func NewMessagesAdapter() *MessagesAdapter {
	return &MessagesAdapter{}
}

// Name implements Adapter.
func (a *MessagesAdapter) Name() string { return "anthropic" }

// Path implements Adapter.
func (a *MessagesAdapter) Path() string { return MessagesPath }

// Decode implements Adapter. The model field becomes the session id and the
// last user message becomes the utterance.
func (a *MessagesAdapter) Decode(body []byte) (*Request, error) {
	var req messagesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, types.NewSchemaError(types.CodeInvalidJSON,
			fmt.Sprintf("invalid messages request: %v", err))
	}

	utterance := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			utterance = extractText(req.Messages[i].Content)
			break
		}
	}

	return &Request{
		SessionID: req.Model,
		Utterance: utterance,
		Stream:    req.Stream,
		Format:    a.Name(),
	}, nil
}

// Encode implements Adapter.
func (a *MessagesAdapter) Encode(resp *Response) ([]byte, error) {
	out := &messagesResponse{
		ID:    messageID(),
		Type:  "message",
		Role:  "assistant",
		Model: resp.SessionID,
		Content: []contentBlock{
			{Type: "text", Text: resp.Utterance},
		},
		StopReason: "end_turn",
	}
	return json.Marshal(out)
}

// EncodeStream implements Adapter. Emits the Messages event sequence:
// message_start, content_block_start, one content_block_delta per segment,
// content_block_stop, message_delta, message_stop.
func (a *MessagesAdapter) EncodeStream(w StreamWriter, resp *Response) error {
	id := messageID()

	start := messageStartEvent{
		Type: "message_start",
		Message: messagesResponse{
			ID:      id,
			Type:    "message",
			Role:    "assistant",
			Model:   resp.SessionID,
			Content: []contentBlock{},
		},
	}
	if err := writeSSEEvent(w, "message_start", start); err != nil {
		return err
	}

	blockStart := contentBlockStartEvent{
		Type:         "content_block_start",
		Index:        0,
		ContentBlock: contentBlock{Type: "text", Text: ""},
	}
	if err := writeSSEEvent(w, "content_block_start", blockStart); err != nil {
		return err
	}

	for _, segment := range SplitUtterance(resp.Utterance) {
		delta := contentBlockDeltaEvent{
			Type:  "content_block_delta",
			Index: 0,
			Delta: textDelta{Type: "text_delta", Text: segment},
		}
		if err := writeSSEEvent(w, "content_block_delta", delta); err != nil {
			return err
		}
	}

	blockStop := contentBlockStopEvent{Type: "content_block_stop", Index: 0}
	if err := writeSSEEvent(w, "content_block_stop", blockStop); err != nil {
		return err
	}

	msgDelta := messageDeltaEvent{
		Type:  "message_delta",
		Delta: stopDelta{StopReason: "end_turn"},
	}
	if err := writeSSEEvent(w, "message_delta", msgDelta); err != nil {
		return err
	}

	return writeSSEEvent(w, "message_stop", messageStopEvent{Type: "message_stop"})
}

// messageID generates a collision-free message id.
func messageID() string {
	return "msg_" + uuid.NewString()
}

// writeSSEEvent writes one named SSE event and flushes it.
func writeSSEEvent(w StreamWriter, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode stream event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
