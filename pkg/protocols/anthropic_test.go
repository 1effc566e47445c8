package protocols

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"switchboard-hq/switchboard/pkg/proxy/types"
)

// sseEvents extracts (event, data) pairs from an SSE capture.
func sseEvents(raw string) [][2]string {
	var out [][2]string
	var event string
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			out = append(out, [2]string{event, strings.TrimPrefix(line, "data: ")})
		}
	}
	return out
}

func TestMessagesAdapterDecode(t *testing.T) {
	adapter := NewMessagesAdapter()

	tests := []struct {
		name          string
		body          string
		wantSessionID string
		wantUtterance string
		wantStream    bool
		wantKind      types.Kind
	}{
		{
			name:          "string content",
			body:          `{"model":"s4","messages":[{"role":"user","content":"Hello?"}]}`,
			wantSessionID: "s4",
			wantUtterance: "Hello?",
		},
		{
			name:          "content block array",
			body:          `{"model":"s4","messages":[{"role":"user","content":[{"type":"text","text":"from blocks"}]}]}`,
			wantSessionID: "s4",
			wantUtterance: "from blocks",
		},
		{
			name:          "last user message wins",
			body:          `{"model":"s4","messages":[{"role":"user","content":"old"},{"role":"assistant","content":"a"},{"role":"user","content":"new"}]}`,
			wantSessionID: "s4",
			wantUtterance: "new",
		},
		{
			name:          "anthropic fields tolerated",
			body:          `{"model":"s4","max_tokens":1024,"system":"be nice","stop_sequences":["x"],"messages":[{"role":"user","content":"hi"}],"stream":true}`,
			wantSessionID: "s4",
			wantUtterance: "hi",
			wantStream:    true,
		},
		{
			name:     "invalid JSON",
			body:     `not json`,
			wantKind: types.KindSchemaError,
		},
		{
			name:     "wrong messages type",
			body:     `{"model":"s4","messages":{"role":"user"}}`,
			wantKind: types.KindSchemaError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := adapter.Decode([]byte(tt.body))

			if tt.wantKind != "" {
				var taxErr *types.Error
				if !errors.As(err, &taxErr) {
					t.Fatalf("expected taxonomy error, got %v", err)
				}
				if taxErr.Kind != tt.wantKind {
					t.Errorf("kind = %v, want %v", taxErr.Kind, tt.wantKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if req.SessionID != tt.wantSessionID {
				t.Errorf("session id = %q, want %q", req.SessionID, tt.wantSessionID)
			}
			if req.Utterance != tt.wantUtterance {
				t.Errorf("utterance = %q, want %q", req.Utterance, tt.wantUtterance)
			}
			if req.Stream != tt.wantStream {
				t.Errorf("stream = %v, want %v", req.Stream, tt.wantStream)
			}
			if req.Format != "anthropic" {
				t.Errorf("format = %q, want anthropic", req.Format)
			}
		})
	}
}

func TestMessagesAdapterEncode(t *testing.T) {
	adapter := NewMessagesAdapter()

	body, err := adapter.Encode(&Response{SessionID: "s4", Utterance: "the reply"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}

	if resp["type"] != "message" {
		t.Errorf("type = %v, want message", resp["type"])
	}
	if resp["role"] != "assistant" {
		t.Errorf("role = %v, want assistant", resp["role"])
	}
	if resp["model"] != "s4" {
		t.Errorf("model = %v, want s4 (session id must be echoed)", resp["model"])
	}
	if resp["stop_reason"] != "end_turn" {
		t.Errorf("stop_reason = %v, want end_turn", resp["stop_reason"])
	}
	if id, _ := resp["id"].(string); !strings.HasPrefix(id, "msg_") {
		t.Errorf("id = %v, want msg_ prefix", resp["id"])
	}

	content := resp["content"].([]interface{})
	if len(content) != 1 {
		t.Fatalf("content length = %d, want 1", len(content))
	}
	block := content[0].(map[string]interface{})
	if block["type"] != "text" {
		t.Errorf("block type = %v, want text", block["type"])
	}
	if block["text"] != "the reply" {
		t.Errorf("block text = %v, want the reply", block["text"])
	}
}

func TestMessagesAdapterRoundTrip(t *testing.T) {
	adapter := NewMessagesAdapter()

	body, err := adapter.Encode(&Response{SessionID: "s-rt", Utterance: "preserved"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Content[0].Text != "preserved" {
		t.Errorf("text = %q, want preserved", resp.Content[0].Text)
	}
	if resp.Model != "s-rt" {
		t.Errorf("model = %q, want s-rt", resp.Model)
	}

	req, err := adapter.Decode([]byte(`{"model":"s-rt","messages":[{"role":"user","content":"preserved"}]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if req.SessionID != "s-rt" || req.Utterance != "preserved" {
		t.Errorf("decode lost fields: %+v", req)
	}
}

func TestMessagesAdapterEncodeStream(t *testing.T) {
	adapter := NewMessagesAdapter()
	w := &captureWriter{}

	err := adapter.EncodeStream(w, &Response{SessionID: "s4", Utterance: "alpha beta gamma"})
	if err != nil {
		t.Fatalf("EncodeStream failed: %v", err)
	}

	events := sseEvents(w.String())

	wantSequence := []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}
	if len(events) != len(wantSequence) {
		t.Fatalf("event count = %d, want %d: %v", len(events), len(wantSequence), events)
	}
	for i, want := range wantSequence {
		if events[i][0] != want {
			t.Errorf("event %d = %q, want %q", i, events[i][0], want)
		}
	}

	// The deltas must reproduce the utterance.
	var rebuilt strings.Builder
	for _, ev := range events {
		if ev[0] != "content_block_delta" {
			continue
		}
		var delta contentBlockDeltaEvent
		if err := json.Unmarshal([]byte(ev[1]), &delta); err != nil {
			t.Fatalf("delta is not valid JSON: %v", err)
		}
		if delta.Delta.Type != "text_delta" {
			t.Errorf("delta type = %q, want text_delta", delta.Delta.Type)
		}
		rebuilt.WriteString(delta.Delta.Text)
	}
	if rebuilt.String() != "alpha beta gamma" {
		t.Errorf("concatenated deltas = %q, want original utterance", rebuilt.String())
	}

	// The message_delta event carries the stop reason.
	var msgDelta messageDeltaEvent
	if err := json.Unmarshal([]byte(events[6][1]), &msgDelta); err != nil {
		t.Fatalf("message_delta is not valid JSON: %v", err)
	}
	if msgDelta.Delta.StopReason != "end_turn" {
		t.Errorf("stop_reason = %q, want end_turn", msgDelta.Delta.StopReason)
	}
}
