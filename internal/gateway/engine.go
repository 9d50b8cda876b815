// Package gateway runs the reply engine: it consumes inbound messages
// from the bus, deduplicates webhook redeliveries, batches rapid
// fragments per sender, resolves a reply through the pipeline and pushes
// it back out, then extracts order intent from the resolved turn.
package gateway

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/shopchat/internal/batch"
	"github.com/nextlevelbuilder/shopchat/internal/bus"
	"github.com/nextlevelbuilder/shopchat/internal/dedup"
	"github.com/nextlevelbuilder/shopchat/internal/media"
	"github.com/nextlevelbuilder/shopchat/internal/orders"
	"github.com/nextlevelbuilder/shopchat/internal/pipeline"
	"github.com/nextlevelbuilder/shopchat/internal/sessions"
	"github.com/nextlevelbuilder/shopchat/internal/store"
	"github.com/nextlevelbuilder/shopchat/internal/telemetry"
)

// Engine ties the bus, guard, batcher, pipeline and extractor together.
type Engine struct {
	bus       *bus.MessageBus
	guard     *dedup.Guard
	batches   *batch.Scheduler
	resolver  *pipeline.Resolver
	extractor *orders.Extractor
	stores    *store.Stores
	sweep     time.Duration
}

// Options configures an Engine.
type Options struct {
	Bus       *bus.MessageBus
	Guard     *dedup.Guard
	Batches   *batch.Scheduler
	Resolver  *pipeline.Resolver
	Extractor *orders.Extractor
	Stores    *store.Stores
	// SweepInterval overrides the guard sweep cadence; zero selects the
	// dedup default.
	SweepInterval time.Duration
}

// NewEngine creates an engine from pre-wired components.
func NewEngine(opts Options) *Engine {
	sweep := opts.SweepInterval
	if sweep <= 0 {
		sweep = dedup.DefaultSweepInterval
	}
	return &Engine{
		bus:       opts.Bus,
		guard:     opts.Guard,
		batches:   opts.Batches,
		resolver:  opts.Resolver,
		extractor: opts.Extractor,
		stores:    opts.Stores,
		sweep:     sweep,
	}
}

// Run consumes inbound messages until ctx is cancelled. The dedup sweep
// runs alongside the consume loop.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		e.guard.Run(ctx, e.sweep)
		return nil
	})
	g.Go(func() error {
		e.consumeLoop(ctx)
		return nil
	})

	return g.Wait()
}

func (e *Engine) consumeLoop(ctx context.Context) {
	slog.Info("reply engine started")
	for {
		msg, ok := e.bus.ConsumeInbound(ctx)
		if !ok {
			slog.Info("reply engine stopped")
			return
		}
		e.handleInbound(ctx, msg)
	}
}

// handleInbound runs the per-delivery fast path: dedup, business lookup
// and batching. Resolution happens later when the batch fires.
func (e *Engine) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	ctx, span := telemetry.Tracer().Start(ctx, "gateway.inbound")
	defer span.End()
	span.SetAttributes(
		attribute.String("channel", msg.Channel),
		attribute.String("business_ref", msg.BusinessRef),
	)

	if msg.MessageID != "" && e.guard.SeenMessageID(msg.MessageID) {
		slog.Debug("duplicate message id dropped", "channel", msg.Channel, "message_id", msg.MessageID)
		return
	}
	sig := dedup.Signature(msg.Channel, msg.SenderID, msg.Timestamp, msg.Content)
	if e.guard.SeenSignature(sig) {
		slog.Debug("duplicate event signature dropped", "channel", msg.Channel, "sender_id", msg.SenderID)
		return
	}

	bc, err := e.stores.Business.LookupByChannelRef(ctx, msg.Channel, msg.BusinessRef)
	if err != nil {
		span.SetStatus(codes.Error, "business lookup failed")
		slog.Warn("no business for channel ref, message dropped",
			"channel", msg.Channel, "business_ref", msg.BusinessRef, "error", err)
		return
	}

	content := msg.Content
	if note := e.processMedia(ctx, bc, msg.Media); note != "" {
		if content != "" {
			content += "\n"
		}
		content += note
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	key := sessions.Key(bc.Business.ID, msg.Channel, msg.SenderID)
	e.batches.Schedule(context.WithoutCancel(ctx), key, content, func(fireCtx context.Context, combined string) {
		e.process(fireCtx, bc, msg, key, combined)
	})
}

// process resolves one debounced batch to a reply and applies any order
// intent it carries.
func (e *Engine) process(ctx context.Context, bc *store.BusinessContext, msg bus.InboundMessage, key, combined string) {
	ctx, span := telemetry.Tracer().Start(ctx, "gateway.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("business", bc.Business.ID),
		attribute.String("channel", msg.Channel),
	)

	result := e.resolver.Resolve(ctx, key, bc, msg.SenderID, combined)
	span.SetAttributes(attribute.String("layer", string(result.Layer)))

	// Denied messages are not billed against the plan.
	if result.Layer != pipeline.LayerPolicyDenial {
		if err := e.stores.Usage.Track(ctx, bc.Business.ID, store.UsageMessage, 1); err != nil {
			slog.Warn("usage tracking failed", "business", bc.Business.ID, "error", err)
		}
	}

	metadata := map[string]string{}
	if token := bc.ChannelTokens[msg.Channel]; token != "" {
		metadata["access_token"] = token
	}
	e.bus.PublishOutbound(bus.OutboundMessage{
		Channel:  msg.Channel,
		ChatID:   msg.ChatID,
		Content:  result.Reply,
		Metadata: metadata,
	})

	// Only generated replies can carry an action block; scripted and FAQ
	// replies are static text. The extractor gets the unstripped model
	// output, not the customer-visible reply.
	if result.Layer == pipeline.LayerAI {
		e.extractor.Apply(ctx, bc, msg.SenderID, combined, result.Raw)
	}
}

// processMedia downscales image attachments, counts their usage and
// returns a content note the pipeline can see. Non-image media is
// ignored.
func (e *Engine) processMedia(ctx context.Context, bc *store.BusinessContext, paths []string) string {
	imgs := 0
	for _, p := range paths {
		if !media.IsImage(p) {
			continue
		}
		if !bc.Business.HasFeature("imageProcessing") {
			continue
		}
		scaled, err := media.Downscale(p)
		if err != nil {
			slog.Warn("image downscale failed", "path", p, "error", err)
			continue
		}
		media.Cleanup(p, scaled)
		imgs++
	}
	if imgs == 0 {
		return ""
	}
	if err := e.stores.Usage.Track(ctx, bc.Business.ID, store.UsageImage, int64(imgs)); err != nil {
		slog.Warn("image usage tracking failed", "business", bc.Business.ID, "error", err)
	}
	return "[customer sent a photo]"
}

// FlushAll fires every pending batch immediately. Called on shutdown so
// buffered fragments still get replies.
func (e *Engine) FlushAll() {
	for _, key := range e.batches.PendingKeys() {
		e.batches.Flush(key)
	}
}
