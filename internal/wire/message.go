package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/value"
)

// Status values carried in a response.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is one command sent by a client.
type Request struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the single reply to a Request.
type Response struct {
	Status  string `json:"status"`
	Result  any    `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success wraps a handler result. A nil result becomes an empty object.
func Success(result any) Response {
	if result == nil {
		result = map[string]any{}
	}
	return Response{Status: StatusSuccess, Result: result}
}

// Failure wraps an error message.
func Failure(err error) Response {
	return Response{Status: StatusError, Message: err.Error()}
}

// OK reports whether the response carries a success status.
func (r Response) OK() bool { return r.Status == StatusSuccess }

// DecodeRequest parses a request payload. Invalid JSON is a protocol error
// whose message starts with "Invalid JSON".
func DecodeRequest(payload []byte) (Request, error) {
	var req Request
	if !json.Valid(payload) {
		return req, gwerr.Protocol("Invalid JSON: %s", syntaxError(payload))
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, gwerr.Protocol("Invalid JSON: %v", err)
	}
	return req, nil
}

func syntaxError(payload []byte) string {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return err.Error()
	}
	return "malformed payload"
}

// EncodeResponse serializes a response. If the result holds a raw NaN or Inf
// that encoding/json rejects, the result is sanitized and encoded again
// rather than failing the reply.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := marshal(resp)
	if err == nil {
		return data, nil
	}
	var unsupported *json.UnsupportedValueError
	if !errors.As(err, &unsupported) {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	resp.Result = Sanitize(resp.Result)
	data, err = marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return data, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Sanitize walks plain JSON-shaped data replacing non-finite floats:
// +Inf → 1e308, -Inf → -1e308, NaN → nil.
func Sanitize(v any) any {
	switch x := v.(type) {
	case float64:
		return value.Finite(x)
	case float32:
		return Sanitize(float64(x))
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = Sanitize(f)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Sanitize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Sanitize(e)
		}
		return out
	}
	return v
}
