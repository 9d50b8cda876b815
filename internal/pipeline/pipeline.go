// Package pipeline resolves an inbound message to a reply through a
// layered match pipeline: access-policy gate, business-scripted match,
// general-scripted match, FAQ fuzzy match, then AI generation. The first
// matching layer wins.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/shopchat/internal/language"
	"github.com/nextlevelbuilder/shopchat/internal/orders"
	"github.com/nextlevelbuilder/shopchat/internal/policy"
	"github.com/nextlevelbuilder/shopchat/internal/providers"
	"github.com/nextlevelbuilder/shopchat/internal/sessions"
	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// Layer identifies the pipeline stage that produced a reply.
type Layer string

const (
	LayerPolicyDenial   Layer = "policy_denial"
	LayerBusinessScript Layer = "business_script"
	LayerGeneralScript  Layer = "general_script"
	LayerFAQ            Layer = "faq"
	LayerAI             Layer = "ai"
	LayerAIFallback     Layer = "ai_fallback"
)

// Result is a resolved reply. Reply is the customer-visible text; Raw
// keeps the unstripped model output so the order extractor can still see
// the action block.
type Result struct {
	Reply  string
	Raw    string
	Layer  Layer
	Lang   language.Language
	Intent string // intent tag from a scripted match, if any
	Source string // matched phrase / FAQ id, for logging
}

// Resolver runs the layered pipeline for one message.
type Resolver struct {
	sessions   *sessions.Manager
	classifier *language.Classifier
	ai         providers.Backend
	access     policy.AccessPolicy
	events     store.EventStore
	general    []store.ScriptEntry
	model      string
}

// NewResolver wires a resolver. general is the business-agnostic script
// table; model overrides the backend default when non-empty.
func NewResolver(sess *sessions.Manager, cls *language.Classifier, ai providers.Backend,
	access policy.AccessPolicy, events store.EventStore, general []store.ScriptEntry, model string) *Resolver {
	return &Resolver{
		sessions:   sess,
		classifier: cls,
		ai:         ai,
		access:     access,
		events:     events,
		general:    general,
		model:      model,
	}
}

// Resolve runs the pipeline. sessionKey scopes conversation state;
// senderID is the raw platform sender used for logging.
func (r *Resolver) Resolve(ctx context.Context, sessionKey string, bc *store.BusinessContext, senderID, message string) Result {
	lang := r.detect(sessionKey, message, bc.Business.DefaultLanguage)

	// 1. Access policy gate.
	start := time.Now()
	decision := r.access.Check(ctx, bc.Business, policy.Requirements{Messages: true, Feature: "aiReplies"})
	if !decision.Allowed {
		reason := decision.Deny()
		r.record(ctx, bc, senderID, string(LayerPolicyDenial), start, reason)
		return Result{Reply: DenialMessage(reason, lang), Layer: LayerPolicyDenial, Lang: lang, Source: reason}
	}

	norm := Normalize(message)

	// 2. Business-scripted match.
	start = time.Now()
	if reply, intent, phrase, ok := matchScripts(norm, bc.Scripts, lang); ok {
		r.record(ctx, bc, senderID, string(LayerBusinessScript), start, phrase)
		return Result{Reply: reply, Layer: LayerBusinessScript, Lang: lang, Intent: intent, Source: phrase}
	}

	// 3. General-scripted match.
	start = time.Now()
	if reply, intent, phrase, ok := matchScripts(norm, r.general, lang); ok {
		r.record(ctx, bc, senderID, string(LayerGeneralScript), start, phrase)
		return Result{Reply: reply, Layer: LayerGeneralScript, Lang: lang, Intent: intent, Source: phrase}
	}

	// 4. FAQ fuzzy match.
	start = time.Now()
	if faq, score, ok := MatchFAQ(message, bc.FAQs); ok {
		r.record(ctx, bc, senderID, string(LayerFAQ), start, fmt.Sprintf("%s (%.2f)", faq.ID, score))
		return Result{Reply: faq.Answer, Layer: LayerFAQ, Lang: lang, Source: faq.ID}
	}

	// 5. AI generation.
	return r.generate(ctx, sessionKey, bc, senderID, message)
}

// detect classifies the message against the sender's session history
// without mutating the session.
func (r *Resolver) detect(sessionKey, message string, businessDefault language.Language) language.Language {
	lastKnown := r.sessions.LastLanguage(sessionKey)
	history := r.sessions.History(sessionKey)
	if len(history) == 0 && language.Valid(businessDefault) {
		lastKnown = businessDefault
	}
	recent := make([]language.Language, len(history))
	for i, t := range history {
		recent[i] = t.Lang
	}
	return r.classifier.Classify(message, lastKnown, recent)
}

func (r *Resolver) generate(ctx context.Context, sessionKey string, bc *store.BusinessContext, senderID, message string) Result {
	start := time.Now()

	// The user turn is part of the conversation whether or not the model
	// call succeeds; the assistant turn is only persisted on success.
	lang := r.sessions.AppendTurn(sessionKey, sessions.RoleUser, message)

	req := providers.CompletionRequest{
		Messages:    r.buildMessages(sessionKey, bc, lang),
		Model:       r.model,
		MaxTokens:   1024,
		Temperature: 0.7,
	}

	reply, err := r.ai.Complete(ctx, req)
	if err != nil {
		slog.Warn("ai generation failed",
			"business", bc.Business.ID, "sender", senderID, "error", err)
		r.record(ctx, bc, senderID, string(LayerAIFallback), start, err.Error())
		return Result{Reply: FallbackMessage(lang), Layer: LayerAIFallback, Lang: lang}
	}

	// The action block is machine-facing: it never reaches the customer
	// and never enters the conversation history.
	visible := orders.StripActions(reply)
	if visible == "" {
		visible = ActionAckMessage(lang)
	}
	r.sessions.AppendTurn(sessionKey, sessions.RoleAssistant, visible)
	r.record(ctx, bc, senderID, string(LayerAI), start, truncate(reply, 200))
	return Result{Reply: visible, Raw: reply, Layer: LayerAI, Lang: lang}
}

// buildMessages assembles the model request: business identity, catalog,
// rolling summary, language pin, then the retained conversation window
// (which already ends with the just-appended user turn).
func (r *Resolver) buildMessages(sessionKey string, bc *store.BusinessContext, lang language.Language) []providers.Message {
	var sys string
	sys = fmt.Sprintf("You are the customer assistant for %s.", bc.Business.Name)
	if bc.Business.Contact != "" {
		sys += "\nContact: " + bc.Business.Contact
	}
	if catalogText := bc.Catalog.RenderText(); catalogText != "" {
		sys += "\n\n" + catalogText
		sys += "\n\n" + actionInstructions
	}
	if summary := r.sessions.Summary(sessionKey); summary != "" {
		sys += "\n\nEarlier conversation:\n" + summary
	}
	sys += "\n\n" + languagePin(lang)

	msgs := []providers.Message{{Role: "system", Content: sys}}
	for _, t := range r.sessions.History(sessionKey) {
		role := "user"
		if t.Role == sessions.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, providers.Message{Role: role, Content: t.Text})
	}
	return msgs
}

// actionInstructions teaches the model the command block the order
// extractor parses out of generated replies. Only sent when the business
// has a catalog to order from.
var actionInstructions = fmt.Sprintf(`When the customer wants to buy something, share delivery details, or confirm or cancel an order, end your reply with a command block:
%s
ADD_PRODUCT: <product_id>, <variant_id>, <quantity>
UPDATE_INFO: name=<name>, phone=<phone>, address=<address>
CONFIRM_ORDER: true
CANCEL_ORDER: true
%s
Include only the lines that apply. The block is removed before the customer sees your reply.`,
	orders.ActionBlockStart, orders.ActionBlockEnd)

func languagePin(lang language.Language) string {
	switch lang {
	case language.Arabic:
		return "Reply in Arabic script."
	case language.Arabizi:
		return "Reply in Arabizi: Arabic written with Latin letters and digits."
	default:
		return "Reply in English."
	}
}

// matchScripts looks for an exact normalized-phrase hit across all
// language variants of every entry; the reply comes back in the detected
// language.
func matchScripts(norm string, entries []store.ScriptEntry, lang language.Language) (reply, intent, phrase string, ok bool) {
	if norm == "" {
		return "", "", "", false
	}
	for _, e := range entries {
		for _, variants := range e.Phrases {
			for _, p := range variants {
				if Normalize(p) == norm {
					return e.ReplyFor(lang), e.Intent, p, true
				}
			}
		}
	}
	return "", "", "", false
}

// record emits a structured pipeline event. Fire-and-forget: storage
// errors are logged, panics swallowed, nothing reaches the caller path.
func (r *Resolver) record(ctx context.Context, bc *store.BusinessContext, senderID, stage string, start time.Time, content string) {
	if r.events == nil {
		return
	}
	ev := store.Event{
		BusinessID: bc.Business.ID,
		SenderID:   senderID,
		Stage:      stage,
		Duration:   time.Since(start),
		Content:    content,
		CreatedAt:  time.Now(),
	}
	go func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("event recorder panic", "panic", p)
			}
		}()
		if err := r.events.Record(context.WithoutCancel(ctx), ev); err != nil {
			slog.Debug("event record failed", "stage", stage, "error", err)
		}
	}()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
