package slot

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Purewee/gerar-admin/internal/errs"
	"github.com/google/uuid"
)

// List is the ordered image list shared by the pipeline components.
// It is safe for concurrent use; subscribers are notified outside the lock.
type List struct {
	mu    sync.Mutex
	slots []Slot
	subs  []func([]Slot)
}

// NewList seeds the list with existing server URLs. Blank and transient
// values are skipped.
func NewList(values ...string) *List {
	l := &List{}
	for _, v := range values {
		if s, ok := fromValue(v); ok && s.Kind != Empty {
			s.Kind = Resolved
			l.slots = append(l.slots, s)
		}
	}
	return l
}

// OnChange registers fn to receive a snapshot after every mutation.
func (l *List) OnChange(fn func([]Slot)) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// Slots returns a copy of the current list.
func (l *List) Slots() []Slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Values renders every slot for display, placeholders included.
func (l *List) Values() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.slots))
	for i, s := range l.slots {
		out[i] = s.String()
	}
	return out
}

// InsertPlaceholders inserts n placeholders starting at index at (clamped
// to the list bounds) and returns their tokens in order.
func (l *List) InsertPlaceholders(at, n int) []Token {
	if n <= 0 {
		return nil
	}
	l.mu.Lock()
	if at < 0 || at > len(l.slots) {
		at = len(l.slots)
	}
	tokens := make([]Token, n)
	fresh := make([]Slot, n)
	for i := range fresh {
		tokens[i] = Token(uuid.NewString())
		fresh[i] = Slot{Kind: Placeholder, Token: tokens[i]}
	}
	l.slots = append(l.slots[:at], append(fresh, l.slots[at:]...)...)
	l.mu.Unlock()

	l.notify()
	return tokens
}

// Resolve replaces the placeholder identified by token with a server URL.
func (l *List) Resolve(token Token, url string) error {
	if strings.TrimSpace(url) == "" || IsTransient(url) {
		return fmt.Errorf("%w: %q", errs.ErrTransientReference, url)
	}
	l.mu.Lock()
	i := l.indexOf(token)
	if i < 0 {
		l.mu.Unlock()
		return errs.ErrSlotGone
	}
	l.slots[i] = Slot{Kind: Resolved, Value: url}
	l.mu.Unlock()

	l.notify()
	return nil
}

// Drop removes the placeholders identified by tokens and reports how many
// were still present.
func (l *List) Drop(tokens ...Token) int {
	if len(tokens) == 0 {
		return 0
	}
	set := make(map[Token]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}

	l.mu.Lock()
	kept := l.slots[:0]
	dropped := 0
	for _, s := range l.slots {
		if _, ok := set[s.Token]; ok && s.Kind == Placeholder {
			dropped++
			continue
		}
		kept = append(kept, s)
	}
	l.slots = kept
	l.mu.Unlock()

	if dropped > 0 {
		l.notify()
	}
	return dropped
}

// Append adds a manually entered value. Blank values become Empty slots.
func (l *List) Append(value string) error {
	s, ok := fromValue(value)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrTransientReference, value)
	}
	l.mu.Lock()
	l.slots = append(l.slots, s)
	l.mu.Unlock()

	l.notify()
	return nil
}

// Set overwrites the value at index i with a manually entered one.
// Placeholders cannot be overwritten.
func (l *List) Set(i int, value string) error {
	s, ok := fromValue(value)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrTransientReference, value)
	}
	l.mu.Lock()
	if i < 0 || i >= len(l.slots) {
		n := len(l.slots)
		l.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", errs.ErrIndexOutOfRange, i, n)
	}
	if l.slots[i].Kind == Placeholder {
		l.mu.Unlock()
		return fmt.Errorf("slot %d: upload in progress", i)
	}
	l.slots[i] = s
	l.mu.Unlock()

	l.notify()
	return nil
}

// RemoveAt deletes the slot at index i; later entries shift down by one.
func (l *List) RemoveAt(i int) (Slot, error) {
	l.mu.Lock()
	if i < 0 || i >= len(l.slots) {
		n := len(l.slots)
		l.mu.Unlock()
		return Slot{}, fmt.Errorf("%w: %d of %d", errs.ErrIndexOutOfRange, i, n)
	}
	removed := l.slots[i]
	l.slots = append(l.slots[:i], l.slots[i+1:]...)
	l.mu.Unlock()

	l.notify()
	return removed, nil
}

// Replace swaps the whole list for values coming from the form state.
// Placeholder markers in values keep their in-flight slot when the token
// is still known; unknown markers and transient values are discarded.
func (l *List) Replace(values []string) {
	l.mu.Lock()
	pending := make(map[Token]Slot)
	for _, s := range l.slots {
		if s.Kind == Placeholder {
			pending[s.Token] = s
		}
	}
	next := make([]Slot, 0, len(values))
	for _, v := range values {
		if strings.HasPrefix(v, PlaceholderPrefix) {
			if s, ok := pending[Token(strings.TrimPrefix(v, PlaceholderPrefix))]; ok {
				next = append(next, s)
			}
			continue
		}
		if s, ok := fromValue(v); ok {
			if existing, found := l.find(v); found {
				s.Kind = existing.Kind
			}
			next = append(next, s)
		}
	}
	l.slots = next
	l.mu.Unlock()

	l.notify()
}

// Finalize returns the persistable values in order, or nil when none
// remain so optional fields are omitted downstream.
func (l *List) Finalize() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, s := range l.slots {
		if s.Persistable() {
			out = append(out, strings.TrimSpace(s.Value))
		}
	}
	return out
}

// PendingTokens lists placeholders still in flight.
func (l *List) PendingTokens() []Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Token
	for _, s := range l.slots {
		if s.Kind == Placeholder {
			out = append(out, s.Token)
		}
	}
	return out
}

func (l *List) indexOf(token Token) int {
	for i, s := range l.slots {
		if s.Kind == Placeholder && s.Token == token {
			return i
		}
	}
	return -1
}

func (l *List) find(value string) (Slot, bool) {
	for _, s := range l.slots {
		if s.Kind != Placeholder && s.Value == value {
			return s, true
		}
	}
	return Slot{}, false
}

func (l *List) snapshot() []Slot {
	out := make([]Slot, len(l.slots))
	copy(out, l.slots)
	return out
}

func (l *List) notify() {
	l.mu.Lock()
	subs := make([]func([]Slot), len(l.subs))
	copy(subs, l.subs)
	snap := l.snapshot()
	l.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// fromValue classifies a manually supplied value. Transient values are
// rejected.
func fromValue(value string) (Slot, bool) {
	if strings.TrimSpace(value) == "" {
		return Slot{Kind: Empty}, true
	}
	if IsTransient(value) {
		return Slot{}, false
	}
	return Slot{Kind: UserURL, Value: value}, true
}
