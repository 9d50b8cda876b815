package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nextlevelbuilder/shopchat/internal/catalog"
	"github.com/nextlevelbuilder/shopchat/internal/language"
	"github.com/nextlevelbuilder/shopchat/internal/store"
)

// PGBusinessStore resolves channel endpoints to business context from
// Postgres. Catalog, FAQ, and script rows are stored as JSONB and decoded
// into the snapshot types.
type PGBusinessStore struct {
	db *sql.DB
}

func NewPGBusinessStore(db *sql.DB) *PGBusinessStore {
	return &PGBusinessStore{db: db}
}

func (s *PGBusinessStore) LookupByChannelRef(ctx context.Context, channel, ref string) (*store.BusinessContext, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT b.id, b.name, b.status, b.plan_expires_at, b.message_limit,
		        b.voice_minute_limit, b.features, b.contact, b.default_language,
		        b.country_code, b.catalog, b.scripts, e.tokens
		 FROM channel_endpoints e
		 JOIN businesses b ON b.id = e.business_id
		 WHERE e.channel = $1 AND e.endpoint_ref = $2`,
		channel, ref,
	)

	var (
		b           store.Business
		expires     sql.NullTime
		featuresRaw []byte
		defaultLang string
		catalogRaw  []byte
		scriptsRaw  []byte
		tokensRaw   []byte
	)
	err := row.Scan(&b.ID, &b.Name, &b.Status, &expires, &b.MessageLimit,
		&b.VoiceMinuteLimit, &featuresRaw, &b.Contact, &defaultLang,
		&b.CountryCode, &catalogRaw, &scriptsRaw, &tokensRaw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no business for %s endpoint %q", channel, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup business: %w", err)
	}

	if expires.Valid {
		b.PlanExpiresAt = expires.Time
	}
	b.DefaultLanguage = language.Normalize(language.Language(defaultLang))
	if len(featuresRaw) > 0 {
		if err := json.Unmarshal(featuresRaw, &b.Features); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
	}

	bc := &store.BusinessContext{Business: b}
	if len(catalogRaw) > 0 {
		var snap catalog.Snapshot
		if err := json.Unmarshal(catalogRaw, &snap); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		bc.Catalog = snap
	}
	if len(scriptsRaw) > 0 {
		if err := json.Unmarshal(scriptsRaw, &bc.Scripts); err != nil {
			return nil, fmt.Errorf("decode scripts: %w", err)
		}
	}
	if len(tokensRaw) > 0 {
		if err := json.Unmarshal(tokensRaw, &bc.ChannelTokens); err != nil {
			return nil, fmt.Errorf("decode channel tokens: %w", err)
		}
	}

	faqs, err := s.loadFAQs(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	bc.FAQs = faqs
	return bc, nil
}

func (s *PGBusinessStore) loadFAQs(ctx context.Context, businessID string) ([]store.FAQ, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer FROM faqs WHERE business_id = $1 ORDER BY created_at`,
		businessID,
	)
	if err != nil {
		return nil, fmt.Errorf("load faqs: %w", err)
	}
	defer rows.Close()

	var faqs []store.FAQ
	for rows.Next() {
		var f store.FAQ
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer); err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		faqs = append(faqs, f)
	}
	return faqs, rows.Err()
}
