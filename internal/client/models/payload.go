package models

import (
	"encoding/json"
	"errors"
	"maps"
	"strings"
)

var ErrIncorrectAssignment = errors.New("field must be name=value")

// Payload is a JSON object exchanged with the server. Partial updates carry
// only the fields they change.
type Payload map[string]any

func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	return maps.Clone(p)
}

// PayloadFromAssignments parses name=value pairs. A value that is a valid JSON
// literal (number, bool, null, quoted string, object, array) is decoded,
// anything else is kept as a plain string.
func PayloadFromAssignments(items []string) (Payload, error) {
	p := make(Payload, len(items))
	for _, item := range items {
		name, raw, ok := strings.Cut(item, "=")
		if !ok || name == "" {
			return nil, ErrIncorrectAssignment
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		p[name] = v
	}
	return p, nil
}
