package dedup

import (
	"testing"
	"time"
)

func TestSeenMessageID(t *testing.T) {
	g := NewGuard(time.Minute, 100)

	if g.SeenMessageID("m1") {
		t.Error("first sighting should not be seen")
	}
	if !g.SeenMessageID("m1") {
		t.Error("second sighting should be seen")
	}
	if g.SeenMessageID("m2") {
		t.Error("different id should not be seen")
	}
}

func TestSeenSignature_TTL(t *testing.T) {
	g := NewGuard(30*time.Millisecond, 100)

	sig := Signature("whatsapp", "sender", 1700000000, "hello there")
	if g.SeenSignature(sig) {
		t.Error("fresh signature should not be seen")
	}
	if !g.SeenSignature(sig) {
		t.Error("repeat within TTL should be seen")
	}

	time.Sleep(50 * time.Millisecond)
	if g.SeenSignature(sig) {
		t.Error("signature past TTL should be forgotten")
	}
}

func TestSignature_TruncatesText(t *testing.T) {
	long := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaXXXX" // 32 a's then tail
	a := Signature("ch", "s", 1, long)
	b := Signature("ch", "s", 1, long[:32]+"YYYY")
	if a != b {
		t.Error("signatures should only consider the leading 32 bytes of text")
	}
}

func TestBoundedEviction(t *testing.T) {
	g := NewGuard(time.Hour, 10)

	for i := 0; i < 25; i++ {
		g.SeenMessageID(Signature("ch", "s", int64(i), "x"))
	}

	g.mu.Lock()
	n := len(g.messageIDs)
	g.mu.Unlock()
	if n > 10 {
		t.Errorf("cache size %d exceeds cap 10", n)
	}
}

func TestSweep(t *testing.T) {
	g := NewGuard(10*time.Millisecond, 100)
	g.SeenMessageID("m1")
	g.SeenSignature("s1")

	time.Sleep(30 * time.Millisecond)
	if evicted := g.Sweep(); evicted != 2 {
		t.Errorf("Sweep evicted %d, want 2", evicted)
	}
}
