package store

import (
	"context"
	"time"

	"github.com/nextlevelbuilder/shopchat/internal/catalog"
	"github.com/nextlevelbuilder/shopchat/internal/language"
)

// Business subscription status values.
const (
	BusinessActive   = "active"
	BusinessInactive = "inactive"
)

// Business is the account that owns a channel endpoint.
type Business struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Status           string            `json:"status"` // BusinessActive / BusinessInactive
	PlanExpiresAt    time.Time         `json:"plan_expires_at"`
	MessageLimit     int64             `json:"message_limit"` // per month, 0 = unlimited
	VoiceMinuteLimit int64             `json:"voice_minute_limit"`
	Features         []string          `json:"features"` // e.g. "aiReplies", "voice", "imageProcessing"
	Contact          string            `json:"contact"`  // phone/address text shown to the model
	DefaultLanguage  language.Language `json:"default_language"`
	CountryCode      string            `json:"country_code"` // for phone normalization, e.g. "961"
}

// HasFeature reports whether the business plan includes a feature.
func (b Business) HasFeature(name string) bool {
	for _, f := range b.Features {
		if f == name {
			return true
		}
	}
	return false
}

// FAQ is one question/answer pair configured by a business.
type FAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ScriptEntry maps normalized trigger phrases to a canned reply, per
// language variant. Phrases are stored pre-normalized.
type ScriptEntry struct {
	Phrases map[language.Language][]string `json:"phrases"`
	Replies map[language.Language]string   `json:"replies"`
	Intent  string                         `json:"intent,omitempty"`
}

// ReplyFor returns the reply in the requested language, falling back to
// English, then to any configured variant.
func (e ScriptEntry) ReplyFor(lang language.Language) string {
	if r, ok := e.Replies[lang]; ok && r != "" {
		return r
	}
	if r, ok := e.Replies[language.English]; ok && r != "" {
		return r
	}
	for _, r := range e.Replies {
		if r != "" {
			return r
		}
	}
	return ""
}

// BusinessContext is everything the pipeline needs about one business for a
// single resolution call. The catalog is a read-only snapshot.
type BusinessContext struct {
	Business Business
	Catalog  catalog.Snapshot
	FAQs     []FAQ
	Scripts  []ScriptEntry
	// ChannelTokens holds per-platform delivery credentials (page token,
	// phone number token); keyed by channel name.
	ChannelTokens map[string]string
}

// BusinessStore resolves channel endpoint identifiers to business context.
type BusinessStore interface {
	// LookupByChannelRef resolves a channel-scoped endpoint id (WhatsApp
	// phone number id, Meta page id, widget domain) to the owning business.
	LookupByChannelRef(ctx context.Context, channel, ref string) (*BusinessContext, error)
}
