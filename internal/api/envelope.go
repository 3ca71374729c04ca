package api

import (
	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
)

// EnvelopeVersion is the response envelope format version.
const EnvelopeVersion = 1

// Envelope wraps every response body.
type Envelope struct {
	V       int       `json:"v"`
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// EnvelopeTransformer wraps handler output in an Envelope. Error bodies,
// including domain errors returned straight from handlers, are placed under
// "error" instead of "data".
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case Envelope, *Envelope:
		return v, nil
	case *APIError:
		return Envelope{V: EnvelopeVersion, Error: body}, nil
	case *domainerrors.Error:
		return Envelope{V: EnvelopeVersion, Error: newAPIError(body)}, nil
	default:
		return Envelope{V: EnvelopeVersion, Success: true, Data: v}, nil
	}
}
