package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/shopchat/internal/store"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Register a business and its channel endpoint interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard()
		},
	}
}

func runOnboard() error {
	var (
		name        string
		countryCode string
		defaultLang string
		channel     string
		endpointRef string
		accessToken string
		msgLimit    string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Business name").
				Value(&name).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Country calling code (e.g. 961)").
				Value(&countryCode),
			huh.NewSelect[string]().
				Title("Default language").
				Options(
					huh.NewOption("English", "english"),
					huh.NewOption("Arabic", "arabic"),
					huh.NewOption("Arabizi", "arabizi"),
				).
				Value(&defaultLang),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Channel").
				Options(
					huh.NewOption("WhatsApp", "whatsapp"),
					huh.NewOption("Instagram", "instagram"),
					huh.NewOption("Messenger", "messenger"),
					huh.NewOption("Web chat", "webchat"),
				).
				Value(&channel),
			huh.NewInput().
				Title("Endpoint ref (phone number id / page id / widget key)").
				Value(&endpointRef).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("endpoint ref is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Page access token (Meta channels only, optional)").
				Value(&accessToken),
			huh.NewInput().
				Title("Monthly message limit (0 = unlimited)").
				Value(&msgLimit).
				Placeholder("1000"),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("onboard cancelled: %w", err)
	}

	dsn, err := resolveDSN()
	if err != nil {
		return err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var limit int64
	fmt.Sscanf(msgLimit, "%d", &limit)

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	// Stored as a JSON array so it decodes straight into Business.Features.
	features, _ := json.Marshal([]string{"aiReplies"})
	_, err = db.ExecContext(ctx,
		`INSERT INTO businesses (id, name, status, message_limit, features, default_language, country_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id.String(), name, store.BusinessActive, limit, features, defaultLang, countryCode,
	)
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}

	tokens := map[string]string{}
	if accessToken != "" {
		tokens[channel] = accessToken
	}
	tokensRaw, _ := json.Marshal(tokens)
	_, err = db.ExecContext(ctx,
		`INSERT INTO channel_endpoints (business_id, channel, endpoint_ref, tokens)
		 VALUES ($1, $2, $3, $4)`,
		id.String(), channel, endpointRef, tokensRaw,
	)
	if err != nil {
		return fmt.Errorf("insert channel endpoint: %w", err)
	}

	fmt.Printf("Business %q registered (id %s) on %s endpoint %s\n", name, id, channel, endpointRef)
	return nil
}
