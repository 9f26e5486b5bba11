// Package slot models the ordered image-reference list a product form
// edits. Each position is an explicit variant instead of an overloaded
// URL string.
package slot

import (
	"strings"
)

// Kind is the state of one position in the image list.
type Kind int

const (
	// Empty is a position the user added but never filled.
	Empty Kind = iota
	// Placeholder marks an upload in flight. It is never persisted.
	Placeholder
	// Resolved holds a server-issued URL.
	Resolved
	// UserURL holds a manually typed URL.
	UserURL
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Placeholder:
		return "placeholder"
	case Resolved:
		return "resolved"
	case UserURL:
		return "user_url"
	}
	return "unknown"
}

// PlaceholderPrefix is the display marker for in-flight uploads.
const PlaceholderPrefix = "uploading-"

// Token identifies a placeholder independently of its current index.
type Token string

// Slot is one entry of the list.
type Slot struct {
	Kind  Kind
	Value string
	Token Token
}

// String renders the slot the way a form field shows it.
func (s Slot) String() string {
	if s.Kind == Placeholder {
		return PlaceholderPrefix + string(s.Token)
	}
	return s.Value
}

// Persistable reports whether the slot may appear in a submitted payload.
func (s Slot) Persistable() bool {
	switch s.Kind {
	case Resolved, UserURL:
		return strings.TrimSpace(s.Value) != "" && !IsTransient(s.Value)
	}
	return false
}

var transientSchemes = []string{"blob:", "data:", "file:"}

// IsTransient reports whether value is a client-local reference or an
// upload marker that must never be persisted.
func IsTransient(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(v, PlaceholderPrefix) {
		return true
	}
	for _, scheme := range transientSchemes {
		if strings.HasPrefix(v, scheme) {
			return true
		}
	}
	return false
}
