package sessions

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nextlevelbuilder/shopchat/internal/language"
)

func newTestManager(window int, ttl time.Duration) *Manager {
	return NewManager(language.NewClassifier(), window, ttl)
}

func TestKey(t *testing.T) {
	a := Key("biz1", "whatsapp", "961700000")
	b := Key("biz2", "whatsapp", "961700000")
	if a == b {
		t.Error("same sender under different businesses must not share a session")
	}
	c := Key("biz1", "instagram", "961700000")
	if a == c {
		t.Error("same sender on different channels must not share a session")
	}
}

func TestAppendTurn_WindowEviction(t *testing.T) {
	m := newTestManager(3, time.Minute)

	m.AppendTurn("k", RoleUser, "first message about delivery")
	m.AppendTurn("k", RoleAssistant, "we deliver every day")
	m.AppendTurn("k", RoleUser, "what about fridays")
	m.AppendTurn("k", RoleAssistant, "fridays too")

	hist := m.History("k")
	if len(hist) != 3 {
		t.Fatalf("history len = %d, want window 3", len(hist))
	}
	if hist[0].Text != "we deliver every day" {
		t.Errorf("oldest retained turn = %q, want second message", hist[0].Text)
	}

	summary := m.Summary("k")
	if !strings.Contains(summary, "first message about delivery") {
		t.Errorf("evicted turn missing from summary: %q", summary)
	}
}

func TestAppendTurn_SummaryChunkCap(t *testing.T) {
	m := newTestManager(1, time.Minute)

	long := strings.Repeat("delivery details ", 200) // well past the chunk cap
	m.AppendTurn("k", RoleUser, long)
	m.AppendTurn("k", RoleUser, "next")

	summary := m.Summary("k")
	if len(summary) == 0 {
		t.Fatal("expected a summary after eviction")
	}
	if len(summary) > summaryChunkCap+16 {
		t.Errorf("summary chunk not capped: len %d", len(summary))
	}
}

func TestRenderTurns_TruncatesOnRuneBoundary(t *testing.T) {
	// Arabic letters are two bytes each; with the line prefix this lands
	// the byte cap in the middle of a letter.
	turns := []Turn{{Role: RoleUser, Text: strings.Repeat("ع", 700), Lang: language.Arabic}}

	out := renderTurns(turns)
	if len(out) > summaryChunkCap {
		t.Errorf("chunk len = %d, want at most %d", len(out), summaryChunkCap)
	}
	if !utf8.ValidString(out) {
		t.Error("truncation split a multi-byte character")
	}
}

func TestLastLanguage(t *testing.T) {
	m := newTestManager(5, time.Minute)

	if got := m.LastLanguage("missing"); got != "" {
		t.Errorf("missing session language = %q, want empty", got)
	}

	m.AppendTurn("k", RoleUser, "مرحبا كيف حالك اليوم")
	if got := m.LastLanguage("k"); got != language.Arabic {
		t.Errorf("LastLanguage = %v, want arabic", got)
	}
}

func TestIdleExpiry(t *testing.T) {
	m := newTestManager(5, 30*time.Millisecond)

	m.AppendTurn("k", RoleUser, "hello there my friend")
	if m.Len() != 1 {
		t.Fatal("session should exist after append")
	}

	time.Sleep(120 * time.Millisecond)
	if m.Len() != 0 {
		t.Error("idle session should expire, summary included")
	}
	if m.Summary("k") != "" {
		t.Error("summary must not survive expiry")
	}
}

func TestIdleExpiry_ActivityResets(t *testing.T) {
	m := newTestManager(5, 80*time.Millisecond)

	m.AppendTurn("k", RoleUser, "hello there my friend")
	time.Sleep(50 * time.Millisecond)
	m.AppendTurn("k", RoleUser, "still here")
	time.Sleep(50 * time.Millisecond)

	if m.Len() != 1 {
		t.Error("activity within the TTL must keep the session alive")
	}
}

func TestDelete(t *testing.T) {
	m := newTestManager(5, time.Minute)
	m.AppendTurn("k", RoleUser, "hello there")
	m.Delete("k")
	if m.Len() != 0 || len(m.History("k")) != 0 {
		t.Error("deleted session should leave no trace")
	}
}
