package query

import (
	"net/url"
	"strings"

	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
)

// Reserved parameter keys. Every other key is a filter.
const (
	KeyPage   = "page"
	KeyLimit  = "limit"
	KeySort   = "sort"
	KeyFields = "fields"
)

// Params is the flat parameter bag taken from a request query string.
type Params map[string][]string

// FromValues copies url.Values into a Params.
func FromValues(v url.Values) Params {
	p := make(Params, len(v))
	for k, vals := range v {
		p[k] = append([]string(nil), vals...)
	}
	return p
}

// ParseQuery parses a raw query string such as "author=user-1&sort=-createdAt".
func ParseQuery(raw string) (Params, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeQuery, "malformed query string")
	}
	return FromValues(v), nil
}

// Get returns the first value for key, or "".
func (p Params) Get(key string) string {
	if vals := p[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Set replaces the values for key.
func (p Params) Set(key string, values ...string) {
	p[key] = values
}

func isReserved(key string) bool {
	switch key {
	case KeyPage, KeyLimit, KeySort, KeyFields:
		return true
	}
	return false
}
