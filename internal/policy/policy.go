// Package policy gates capability consumption per business plan, status,
// and usage. Denials surface as localized user-facing messages, never as
// errors.
package policy

import (
	"context"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// Denial reasons, matched by the pipeline's localized message table.
const (
	ReasonExpired       = "expired"
	ReasonInactive      = "inactive"
	ReasonMessageLimit  = "message_limit"
	ReasonFeaturePrefix = "feature:"
	ReasonVoiceLimit    = "voice_limit"
)

// Requirements describes what a request is about to consume.
type Requirements struct {
	Messages        bool   // consumes one message
	Feature         string // required plan feature, e.g. "aiReplies"
	VoiceMinutes    int64  // voice minutes about to be consumed
	ImageProcessing bool   // requires the imageProcessing feature
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reasons []string
}

// Deny returns the primary denial reason, empty when allowed.
func (d Decision) Deny() string {
	if d.Allowed || len(d.Reasons) == 0 {
		return ""
	}
	return d.Reasons[0]
}

// AccessPolicy decides whether a business may consume a capability.
type AccessPolicy interface {
	Check(ctx context.Context, biz store.Business, req Requirements) Decision
}

// PlanPolicy implements AccessPolicy against plan status, expiry, feature
// list, and monthly usage counters.
type PlanPolicy struct {
	usage store.UsageStore
}

// NewPlanPolicy creates the default policy backed by a usage store.
func NewPlanPolicy(usage store.UsageStore) *PlanPolicy {
	return &PlanPolicy{usage: usage}
}

func (p *PlanPolicy) Check(ctx context.Context, biz store.Business, req Requirements) Decision {
	var reasons []string

	if biz.Status != store.BusinessActive {
		reasons = append(reasons, ReasonInactive)
	}
	if !biz.PlanExpiresAt.IsZero() && time.Now().After(biz.PlanExpiresAt) {
		reasons = append(reasons, ReasonExpired)
	}
	if req.Feature != "" && !biz.HasFeature(req.Feature) {
		reasons = append(reasons, ReasonFeaturePrefix+req.Feature)
	}
	if req.ImageProcessing && !biz.HasFeature("imageProcessing") {
		reasons = append(reasons, ReasonFeaturePrefix+"imageProcessing")
	}

	if req.Messages && biz.MessageLimit > 0 {
		used, err := p.usage.MonthUsage(ctx, biz.ID, store.UsageMessage)
		if err != nil {
			// Usage lookup failure degrades open: a storage blip should not
			// silence every conversation for the business.
			slog.Warn("policy: usage lookup failed", "business", biz.ID, "error", err)
		} else if used >= biz.MessageLimit {
			reasons = append(reasons, ReasonMessageLimit)
		}
	}

	if req.VoiceMinutes > 0 && biz.VoiceMinuteLimit > 0 {
		used, err := p.usage.MonthUsage(ctx, biz.ID, store.UsageVoice)
		if err != nil {
			slog.Warn("policy: voice usage lookup failed", "business", biz.ID, "error", err)
		} else if used+req.VoiceMinutes > biz.VoiceMinuteLimit {
			reasons = append(reasons, ReasonVoiceLimit)
		}
	}

	return Decision{Allowed: len(reasons) == 0, Reasons: reasons}
}
