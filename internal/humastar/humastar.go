// Package humastar serves Datastar streams and hypermedia links from Huma
// operations.
//
// Stream operations embed [Handler] and push signals through [SSE]:
//
//	func (h *API) Events(ctx context.Context, _ *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Signals(map[string]any{"overlay": snap})
//	    }), nil
//	}
//
// JSON operations get RFC 8288 Link headers from [AutoLinks], [Pager] and
// [Actor] through [LinkTransformer].
package humastar

import (
	"encoding/json"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// Handler is embedded by Huma handlers that answer with Datastar streams.
type Handler struct{}

// Stream returns a StreamResponse that hands fn a ready SSE writer.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// SSE writes Datastar events.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE opens a Datastar stream on a Huma context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Signals patches signals on the client.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Status patches the "status" signal with a result kind ("ok" or "error")
// and message.
func (s SSE) Status(kind, msg string) {
	s.MarshalAndPatchSignals(map[string]any{"status": map[string]string{"kind": kind, "message": msg}})
}

// Event dispatches a DOM event named name carrying payload.
func (s SSE) Event(name string, payload any) {
	s.DispatchCustomEvent(name, payload)
}

// Signals is the flat JSON object Datastar posts with every action.
type Signals map[string]any

// ParseSignals decodes a request body.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal, or "" when absent or not a string.
func (s Signals) String(key string) string {
	str, _ := s[key].(string)
	return str
}

// Require returns a non-empty string signal or a 400 error naming it.
func (s Signals) Require(key string) (string, error) {
	if v := s.String(key); v != "" {
		return v, nil
	}
	return "", huma.Error400BadRequest(fmt.Sprintf("signal %q is required", key))
}

// EmptyInput is the input of operations without parameters.
type EmptyInput struct{}

// SignalsInput receives the raw Datastar signals body.
type SignalsInput struct {
	RawBody []byte
}

// Parse decodes the signals or returns a 400 error.
func (i *SignalsInput) Parse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}
