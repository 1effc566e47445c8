package protocols

import (
	"fmt"
	"io"
	"strings"

	"switchboard-hq/switchboard/pkg/proxy/types"
)

// Request is the wire-format-independent inbound envelope. Only Utterance is
// forwarded between peers; all other wire-format metadata (temperature,
// max_tokens, system prompts) is accepted by the adapters and discarded.
type Request struct {
	// SessionID is the rendezvous key, carried in the wire format's model
	// field. Sessions with distinct ids are fully independent.
	SessionID string

	// Utterance is the content of the last message with role "user".
	// Earlier history is ignored; each side sends its own history.
	Utterance string

	// Stream requests a Server-Sent-Events response.
	Stream bool

	// Format names the adapter that decoded the request.
	Format string
}

// Validate checks the semantic rules that apply after a successful decode.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return types.NewInvalidRequestError(types.CodeSessionIDEmpty,
			"model must be a non-empty session id")
	}
	if r.Utterance == "" {
		return types.NewInvalidRequestError(types.CodeNoUserMessage,
			"messages must contain a user message with non-empty content")
	}
	return nil
}

// Response is the wire-format-independent outbound envelope. The producing
// side's utterance becomes the consuming side's response body.
type Response struct {
	// SessionID is echoed as the response's model field.
	SessionID string

	// Utterance is the peer's message content.
	Utterance string
}

// StreamWriter is the sink for SSE encoding. Flush pushes buffered bytes to
// the client after each event.
type StreamWriter interface {
	io.Writer
	Flush()
}

// Adapter is a bidirectional codec between one wire format and the envelope.
// Implementations are stateless and safe for concurrent use.
type Adapter interface {
	// Name identifies the adapter ("openai", "anthropic").
	Name() string

	// Path is the HTTP path the adapter serves.
	Path() string

	// Decode parses a raw request body. It returns a schema_error for bodies
	// that do not decode into the adapter's input schema; semantic rules are
	// checked separately via Request.Validate.
	Decode(body []byte) (*Request, error)

	// Encode serializes a non-streaming response body.
	Encode(resp *Response) ([]byte, error)

	// EncodeStream writes the response as an SSE event stream, flushing
	// after each event.
	EncodeStream(w StreamWriter, resp *Response) error
}

// Registry resolves adapters by HTTP path.
type Registry struct {
	byPath map[string]Adapter
}

// NewRegistry creates a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byPath: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.byPath[a.Path()] = a
	}
	return r
}

// ForPath returns the adapter serving the given path.
func (r *Registry) ForPath(path string) (Adapter, error) {
	a, ok := r.byPath[path]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for path %q", path)
	}
	return a, nil
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.byPath))
	for _, a := range r.byPath {
		out = append(out, a)
	}
	return out
}

// SplitUtterance splits s into whitespace-preserving segments: each segment
// is one non-space run plus its trailing whitespace, except that leading
// whitespace, if any, forms a segment of its own. Concatenating the
// segments reproduces s exactly. Returns nil for an empty string.
func SplitUtterance(s string) []string {
	if s == "" {
		return nil
	}

	var segments []string
	start := 0
	inSpace := false
	for i, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if inSpace && !isSpace {
			segments = append(segments, s[start:i])
			start = i
		}
		inSpace = isSpace
	}
	segments = append(segments, s[start:])
	return segments
}

// extractText pulls the text out of a tolerant content value: a plain string,
// or an array of content blocks of which the text parts are joined with a
// single space. Unknown block types are skipped.
func extractText(content interface{}) string {
	if content == nil {
		return ""
	}

	if str, ok := content.(string); ok {
		return str
	}

	arr, ok := content.([]interface{})
	if !ok {
		return ""
	}

	var parts []string
	for _, part := range arr {
		block, ok := part.(map[string]interface{})
		if !ok {
			continue
		}
		if blockType, ok := block["type"].(string); ok && blockType != "text" {
			continue
		}
		if text, ok := block["text"].(string); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
