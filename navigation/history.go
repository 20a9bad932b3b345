// Package navigation models the two ways the portal moves between pages:
// routed navigation, which keeps application state, and a hard reload, which
// throws all in-memory state away.
package navigation

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// ReloadFunc rebuilds the application at path.
type ReloadFunc func(path string)

type History struct {
	mu      sync.Mutex
	entries []string
	onPush  func(path string)
	reload  ReloadFunc
}

// NewHistory starts at path. reload is invoked by Reload.
func NewHistory(path string, reload ReloadFunc) *History {
	return &History{entries: []string{path}, reload: reload}
}

// OnNavigate registers a callback run after every routed navigation.
func (h *History) OnNavigate(fn func(path string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPush = fn
}

// Push adds path on top of the history.
func (h *History) Push(path string) {
	h.mu.Lock()
	h.entries = append(h.entries, path)
	fn := h.onPush
	h.mu.Unlock()

	log.Debug().Str("path", path).Msg("navigate")
	if fn != nil {
		fn(path)
	}
}

// Replace swaps the current entry for path so Back cannot return to it.
func (h *History) Replace(path string) {
	h.mu.Lock()
	h.entries[len(h.entries)-1] = path
	fn := h.onPush
	h.mu.Unlock()

	log.Debug().Str("path", path).Msg("navigate (replace)")
	if fn != nil {
		fn(path)
	}
}

// Back pops the current entry. It reports false at the first entry.
func (h *History) Back() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 1 {
		return h.entries[0], false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return h.entries[len(h.entries)-1], true
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// Reload is a hard navigation: history restarts at path and the reload hook rebuilds the app.
func (h *History) Reload(path string) {
	h.mu.Lock()
	h.entries = []string{path}
	reload := h.reload
	h.mu.Unlock()

	log.Info().Str("path", path).Msg("hard navigation")
	if reload != nil {
		reload(path)
	}
}
