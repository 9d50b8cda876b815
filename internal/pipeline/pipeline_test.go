package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/shopchat/internal/catalog"
	"github.com/nextlevelbuilder/shopchat/internal/language"
	"github.com/nextlevelbuilder/shopchat/internal/policy"
	"github.com/nextlevelbuilder/shopchat/internal/providers"
	"github.com/nextlevelbuilder/shopchat/internal/sessions"
	"github.com/nextlevelbuilder/shopchat/internal/store"
	"github.com/nextlevelbuilder/shopchat/internal/store/memory"
)

type stubBackend struct {
	reply string
	err   error
	calls int
}

func (s *stubBackend) Complete(context.Context, providers.CompletionRequest) (string, error) {
	s.calls++
	return s.reply, s.err
}

func (s *stubBackend) AnalyzeIntent(context.Context, string) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBackend) Name() string { return "stub" }

func testBusiness() *store.BusinessContext {
	return &store.BusinessContext{
		Business: store.Business{
			ID:       "biz1",
			Name:     "Test Shop",
			Status:   store.BusinessActive,
			Features: []string{"aiReplies"},
		},
		Scripts: []store.ScriptEntry{
			{
				Intent: "hours",
				Phrases: map[language.Language][]string{
					language.English: {"what are your hours"},
				},
				Replies: map[language.Language]string{
					language.English: "We're open 9 to 6.",
				},
			},
		},
		FAQs: []store.FAQ{
			{ID: "faq1", Question: "do you deliver to tripoli", Answer: "Yes, delivery to Tripoli takes 2 days."},
			// Same phrase as the business script above; the script must win.
			{ID: "faq2", Question: "what are your hours", Answer: "faq hours answer"},
		},
	}
}

func newTestResolver(backend providers.Backend) (*Resolver, *sessions.Manager) {
	cls := language.NewClassifier()
	sess := sessions.NewManager(cls, 20, time.Minute)
	stores := memory.NewStores()
	r := NewResolver(sess, cls, backend, policy.NewPlanPolicy(stores.Usage), stores.Events, GeneralScripts(), "test-model")
	return r, sess
}

func TestResolve_PolicyDenialShortCircuits(t *testing.T) {
	backend := &stubBackend{reply: "should not run"}
	r, _ := newTestResolver(backend)

	bc := testBusiness()
	bc.Business.Status = store.BusinessInactive

	res := r.Resolve(context.Background(), "k", bc, "s1", "what are your hours")
	if res.Layer != LayerPolicyDenial {
		t.Fatalf("layer = %v, want policy denial", res.Layer)
	}
	if backend.calls != 0 {
		t.Error("denied request must not reach the backend")
	}
	if res.Reply != DenialMessage(policy.ReasonInactive, language.English) {
		t.Errorf("reply = %q", res.Reply)
	}
}

func TestResolve_MessageLimitDenial(t *testing.T) {
	backend := &stubBackend{reply: "hi"}
	cls := language.NewClassifier()
	sess := sessions.NewManager(cls, 20, time.Minute)
	stores := memory.NewStores()
	r := NewResolver(sess, cls, backend, policy.NewPlanPolicy(stores.Usage), stores.Events, nil, "m")

	bc := testBusiness()
	bc.Business.MessageLimit = 2
	_ = stores.Usage.Track(context.Background(), "biz1", store.UsageMessage, 2)

	res := r.Resolve(context.Background(), "k", bc, "s1", "hello how are you doing")
	if res.Layer != LayerPolicyDenial {
		t.Fatalf("layer = %v, want policy denial", res.Layer)
	}
	if res.Reply != "Message limit reached. Upgrade your plan." {
		t.Errorf("reply = %q", res.Reply)
	}
}

func TestResolve_BusinessScriptBeatsAI(t *testing.T) {
	backend := &stubBackend{reply: "ai answer"}
	r, _ := newTestResolver(backend)

	res := r.Resolve(context.Background(), "k", testBusiness(), "s1", "What are your HOURS??")
	if res.Layer != LayerBusinessScript {
		t.Fatalf("layer = %v, want business script", res.Layer)
	}
	if res.Reply != "We're open 9 to 6." {
		t.Errorf("reply = %q", res.Reply)
	}
	if res.Intent != "hours" {
		t.Errorf("intent = %q, want hours", res.Intent)
	}
	if backend.calls != 0 {
		t.Error("scripted match must not reach the backend")
	}
}

func TestResolve_GeneralScriptGreeting(t *testing.T) {
	backend := &stubBackend{reply: "ai answer"}
	r, _ := newTestResolver(backend)

	res := r.Resolve(context.Background(), "k", testBusiness(), "s1", "hello")
	if res.Layer != LayerGeneralScript {
		t.Fatalf("layer = %v, want general script", res.Layer)
	}
	if res.Intent != "greeting" {
		t.Errorf("intent = %q", res.Intent)
	}
}

func TestResolve_FAQMatch(t *testing.T) {
	backend := &stubBackend{reply: "ai answer"}
	r, _ := newTestResolver(backend)

	res := r.Resolve(context.Background(), "k", testBusiness(), "s1", "do you deliver to tripoli?")
	if res.Layer != LayerFAQ {
		t.Fatalf("layer = %v, want faq", res.Layer)
	}
	if res.Reply != "Yes, delivery to Tripoli takes 2 days." {
		t.Errorf("reply = %q", res.Reply)
	}
}

func TestResolve_AIGeneration(t *testing.T) {
	backend := &stubBackend{reply: "Sure, we have that in stock."}
	r, sess := newTestResolver(backend)

	res := r.Resolve(context.Background(), "k", testBusiness(), "s1", "tell me about the blue jacket you sell")
	if res.Layer != LayerAI {
		t.Fatalf("layer = %v, want ai", res.Layer)
	}
	if res.Reply != "Sure, we have that in stock." {
		t.Errorf("reply = %q", res.Reply)
	}

	hist := sess.History("k")
	if len(hist) != 2 {
		t.Fatalf("history len = %d, want user + assistant", len(hist))
	}
	if hist[0].Role != sessions.RoleUser || hist[1].Role != sessions.RoleAssistant {
		t.Error("history roles wrong")
	}
}

func TestResolve_AIFallbackKeepsUserTurn(t *testing.T) {
	backend := &stubBackend{err: errors.New("backend down")}
	r, sess := newTestResolver(backend)

	res := r.Resolve(context.Background(), "k", testBusiness(), "s1", "tell me about shipping costs please")
	if res.Layer != LayerAIFallback {
		t.Fatalf("layer = %v, want ai fallback", res.Layer)
	}
	if res.Reply != FallbackMessage(language.English) {
		t.Errorf("reply = %q", res.Reply)
	}

	hist := sess.History("k")
	if len(hist) != 1 || hist[0].Role != sessions.RoleUser {
		t.Errorf("history = %+v, want only the user turn", hist)
	}
}

func TestResolve_ScriptedRepliesStayOutOfHistory(t *testing.T) {
	backend := &stubBackend{reply: "x"}
	r, sess := newTestResolver(backend)

	r.Resolve(context.Background(), "k", testBusiness(), "s1", "hello")
	if len(sess.History("k")) != 0 {
		t.Error("scripted exchanges must not enter session history")
	}
}

func TestResolve_ActionBlockStrippedFromReplyAndHistory(t *testing.T) {
	backend := &stubBackend{reply: "Added!\n[ACTIONS]\nADD_PRODUCT: p1, v1, 1\n[/ACTIONS]"}
	r, sess := newTestResolver(backend)

	res := r.Resolve(context.Background(), "k", testBusiness(), "s1", "add the red shirt to my order")
	if res.Layer != LayerAI {
		t.Fatalf("layer = %v, want ai", res.Layer)
	}
	if res.Reply != "Added!" {
		t.Errorf("visible reply = %q, want the action block stripped", res.Reply)
	}
	if !strings.Contains(res.Raw, "ADD_PRODUCT: p1, v1, 1") {
		t.Error("raw output must keep the action block for the extractor")
	}

	hist := sess.History("k")
	if len(hist) != 2 {
		t.Fatalf("history len = %d, want user + assistant", len(hist))
	}
	if hist[1].Text != "Added!" {
		t.Errorf("assistant turn = %q, action block leaked into history", hist[1].Text)
	}
}

func TestResolve_ActionOnlyReplyGetsAck(t *testing.T) {
	backend := &stubBackend{reply: "[ACTIONS]\nCONFIRM_ORDER: true\n[/ACTIONS]"}
	r, _ := newTestResolver(backend)

	res := r.Resolve(context.Background(), "k", testBusiness(), "s1", "yes please confirm my order now")
	if res.Reply != ActionAckMessage(language.English) {
		t.Errorf("reply = %q, want the acknowledgment message", res.Reply)
	}
	if !strings.Contains(res.Raw, "CONFIRM_ORDER: true") {
		t.Error("raw output must keep the command")
	}
}

func TestBuildMessages_ActionInstructions(t *testing.T) {
	r, _ := newTestResolver(&stubBackend{})

	bc := testBusiness()
	msgs := r.buildMessages("k", bc, language.English)
	if strings.Contains(msgs[0].Content, "ADD_PRODUCT") {
		t.Error("no catalog, so the prompt should not teach order commands")
	}

	bc.Catalog = catalog.Snapshot{
		{ID: "p1", Title: "Cotton T-Shirt", Variants: []catalog.Variant{
			{ID: "v1", Price: 15, InStock: true},
		}},
	}
	msgs = r.buildMessages("k", bc, language.English)
	sys := msgs[0].Content
	for _, want := range []string{"[ACTIONS]", "ADD_PRODUCT", "UPDATE_INFO", "CONFIRM_ORDER", "CANCEL_ORDER"} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Heyyyy!!!", "heyy"},
		{"  What   ARE your   hours?? ", "what are your hours"},
		{"soooo goooood", "soo good"},
		{"نعم!!", "نعم"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchFAQ_Threshold(t *testing.T) {
	faqs := []store.FAQ{
		{ID: "f1", Question: "how long does delivery take", Answer: "Two days."},
		{ID: "f2", Question: "what payment methods do you accept", Answer: "Cash and card."},
	}

	if _, _, ok := MatchFAQ("how long does delivery take", faqs); !ok {
		t.Error("exact question should match")
	}
	if faq, _, ok := MatchFAQ("delivery how long", faqs); !ok || faq.ID != "f1" {
		t.Error("high-overlap question should match f1")
	}
	if _, _, ok := MatchFAQ("hello there friend", faqs); ok {
		t.Error("unrelated message should not match any FAQ")
	}
}

func TestDenialMessage_FeatureGeneric(t *testing.T) {
	msg := DenialMessage(policy.ReasonFeaturePrefix+"aiReplies", language.English)
	if msg != "This feature is not included in your plan." {
		t.Errorf("feature denial = %q", msg)
	}
}
