package protocols

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"switchboard-hq/switchboard/pkg/proxy/types"
)

// ChatPath is the HTTP path served by the Chat Completions adapter.
const ChatPath = "/v1/chat/completions"

// chatCompletionRequest is the accepted subset of the OpenAI Chat Completions
// request schema. Unknown fields are tolerated for forward compatibility;
// only model, messages, and stream are used.
type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatMessage is a single conversation message. Content may be a string or an
// array of content parts.
type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// chatCompletionResponse is the non-streaming response shape.
type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int                   `json:"index"`
	Message      chatCompletionMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatUsage is the zeroed placeholder; the proxy counts no tokens.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatCompletionChunk is one streaming SSE record.
type chatCompletionChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []chatStreamChoice `json:"choices"`
}

type chatStreamChoice struct {
	Index        int       `json:"index"`
	Delta        chatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason,omitempty"`
}

type chatDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChatAdapter implements the OpenAI Chat Completions wire format.
type ChatAdapter struct{}

// NewChatAdapter creates the Chat Completions adapter.
func NewChatAdapter() *ChatAdapter {
	return &ChatAdapter{}
}

// Name implements Adapter.
func (a *ChatAdapter) Name() string { return "openai" }

// Path implements Adapter.
func (a *ChatAdapter) Path() string { return ChatPath }

// Decode implements Adapter. The model field becomes the session id and the
// last user message becomes the utterance.
func (a *ChatAdapter) Decode(body []byte) (*Request, error) {
	var req chatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, types.NewSchemaError(types.CodeInvalidJSON,
			fmt.Sprintf("invalid chat completion request: %v", err))
	}

	return &Request{
		SessionID: req.Model,
		Utterance: lastUserMessage(req.Messages),
		Stream:    req.Stream,
		Format:    a.Name(),
	}, nil
}

// Encode implements Adapter.
func (a *ChatAdapter) Encode(resp *Response) ([]byte, error) {
	out := &chatCompletionResponse{
		ID:      completionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.SessionID,
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatCompletionMessage{
					Role:    "assistant",
					Content: resp.Utterance,
				},
				FinishReason: "stop",
			},
		},
	}
	return json.Marshal(out)
}

// EncodeStream implements Adapter. The utterance is split into
// whitespace-preserving segments, one delta per segment, followed by a
// finish_reason chunk and the [DONE] sentinel.
func (a *ChatAdapter) EncodeStream(w StreamWriter, resp *Response) error {
	id := completionID()
	created := time.Now().Unix()

	chunk := func(delta chatDelta, finish *string) *chatCompletionChunk {
		return &chatCompletionChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   resp.SessionID,
			Choices: []chatStreamChoice{
				{Index: 0, Delta: delta, FinishReason: finish},
			},
		}
	}

	segments := SplitUtterance(resp.Utterance)
	for i, segment := range segments {
		delta := chatDelta{Content: segment}
		if i == 0 {
			delta.Role = "assistant"
		}
		if err := writeSSEData(w, chunk(delta, nil)); err != nil {
			return err
		}
	}
	if len(segments) == 0 {
		if err := writeSSEData(w, chunk(chatDelta{Role: "assistant"}, nil)); err != nil {
			return err
		}
	}

	stop := "stop"
	if err := writeSSEData(w, chunk(chatDelta{}, &stop)); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// lastUserMessage returns the content of the last message with role "user".
func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return extractText(messages[i].Content)
		}
	}
	return ""
}

// completionID generates a collision-free response id.
func completionID() string {
	return "chatcmpl-" + uuid.NewString()
}

// writeSSEData writes one data-only SSE event and flushes it.
func writeSSEData(w StreamWriter, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode stream event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
