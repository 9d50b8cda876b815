package sessions

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nextlevelbuilder/shopchat/internal/language"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation, with the language detected at
// append time.
type Turn struct {
	Role string            `json:"role"`
	Text string            `json:"text"`
	Lang language.Language `json:"lang"`
}

const (
	// DefaultWindow is how many turns a session retains verbatim.
	DefaultWindow = 20
	// DefaultIdleTTL destroys a session this long after its last append.
	DefaultIdleTTL = 10 * time.Minute
	// summaryChunkCap bounds the rendered text of one eviction batch.
	summaryChunkCap = 1200
)

type session struct {
	turns      []Turn
	summary    string
	lastActive time.Time
	expire     *time.Timer
}

// Manager owns per-sender conversation windows. Turns beyond the window are
// folded into a rolling summary by concatenation; an idle session is
// destroyed together with its summary. Safe for concurrent use across
// senders; per-sender call ordering is the caller's responsibility (the
// batch scheduler serializes it).
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*session
	classifier *language.Classifier
	window     int
	idleTTL    time.Duration
}

// NewManager creates a session manager. window <= 0 and idleTTL <= 0 select
// the defaults.
func NewManager(classifier *language.Classifier, window int, idleTTL time.Duration) *Manager {
	if window <= 0 {
		window = DefaultWindow
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Manager{
		sessions:   make(map[string]*session),
		classifier: classifier,
		window:     window,
		idleTTL:    idleTTL,
	}
}

// AppendTurn classifies text against the session's history, appends the
// turn, evicts turns beyond the window into the summary, and resets the
// idle-expiry timer. It returns the detected language.
func (m *Manager) AppendTurn(key, role, text string) language.Language {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		s = &session{}
		m.sessions[key] = s
	}

	// Turns record the raw per-turn classification; the switch hysteresis
	// lives in Classify and applies to the session-level language only.
	lang := m.classifier.ClassifyTurn(text, m.lastLangLocked(s), recentLangs(s.turns))
	s.turns = append(s.turns, Turn{Role: role, Text: text, Lang: lang})

	if over := len(s.turns) - m.window; over > 0 {
		evicted := s.turns[:over]
		s.turns = append([]Turn{}, s.turns[over:]...)
		s.summary = appendSummary(s.summary, renderTurns(evicted))
	}

	s.lastActive = time.Now()
	m.resetExpiryLocked(key, s)
	return lang
}

// History returns a copy of the session's retained turns, oldest first.
func (m *Manager) History(key string) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil
	}
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Summary returns the rolling summary text for a session.
func (m *Manager) Summary(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.summary
	}
	return ""
}

// LastLanguage returns the language of the most recent turn, or empty
// when nothing is known about the session. Callers decide their own
// default for the unknown case.
func (m *Manager) LastLanguage(key string) language.Language {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return m.lastLangLocked(s)
	}
	return ""
}

// Delete removes a session and its summary immediately.
func (m *Manager) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(key)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lastLangLocked(s *session) language.Language {
	if len(s.turns) > 0 {
		return s.turns[len(s.turns)-1].Lang
	}
	return language.Default
}

// resetExpiryLocked cancels and reschedules the session's idle timer.
// The fired callback re-checks idleness so a stale fire racing a fresh
// append is a no-op.
func (m *Manager) resetExpiryLocked(key string, s *session) {
	if s.expire != nil {
		s.expire.Stop()
	}
	s.expire = time.AfterFunc(m.idleTTL, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		cur, ok := m.sessions[key]
		if !ok {
			return
		}
		if time.Since(cur.lastActive) < m.idleTTL {
			return
		}
		m.deleteLocked(key)
	})
}

func (m *Manager) deleteLocked(key string) {
	if s, ok := m.sessions[key]; ok {
		if s.expire != nil {
			s.expire.Stop()
		}
		delete(m.sessions, key)
	}
}

func recentLangs(turns []Turn) []language.Language {
	langs := make([]language.Language, len(turns))
	for i, t := range turns {
		langs[i] = t.Lang
	}
	return langs
}

// renderTurns flattens evicted turns into "[lang] Role: text" lines,
// capped at summaryChunkCap characters.
func renderTurns(turns []Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		role := "User"
		if t.Role == RoleAssistant {
			role = "Assistant"
		}
		lines[i] = fmt.Sprintf("[%s] %s: %s", t.Lang, role, t.Text)
	}
	joined := strings.Join(lines, "\n")
	if len(joined) > summaryChunkCap {
		// Back up to a rune boundary so Arabic text is never cut
		// mid-character.
		cut := summaryChunkCap
		for cut > 0 && !utf8.RuneStart(joined[cut]) {
			cut--
		}
		joined = joined[:cut]
	}
	return joined
}

// appendSummary concatenates a new chunk onto the existing summary.
// Old chunks are never re-summarized.
func appendSummary(existing, chunk string) string {
	if chunk == "" {
		return existing
	}
	if existing == "" {
		return chunk
	}
	return existing + "\n" + chunk
}
