package upload

import "sync"

// Session is the set of URLs uploaded by one pipeline instance, as
// opposed to URLs the form started with.
type Session struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

func NewSession() *Session {
	return &Session{urls: make(map[string]struct{})}
}

func (s *Session) Track(url string) {
	s.mu.Lock()
	s.urls[url] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) Forget(url string) {
	s.mu.Lock()
	delete(s.urls, url)
	s.mu.Unlock()
}

func (s *Session) Tracked(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urls[url]
	return ok
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}
