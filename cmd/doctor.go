package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"runtime"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/shopchat/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("shopchat doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, defaults + env apply)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Database:")
	fmt.Printf("    %-10s %s\n", "Mode:", cfg.Database.Mode)
	if cfg.Database.Mode == "postgres" {
		if cfg.Database.PostgresDSN == "" {
			fmt.Printf("    %-10s SHOPCHAT_POSTGRES_DSN not set\n", "Status:")
		} else if db, dbErr := sql.Open("pgx", cfg.Database.PostgresDSN); dbErr != nil {
			fmt.Printf("    %-10s CONNECT FAILED (%s)\n", "Status:", dbErr)
		} else {
			if pingErr := db.Ping(); pingErr != nil {
				fmt.Printf("    %-10s CONNECT FAILED (%s)\n", "Status:", pingErr)
			} else {
				var businesses int
				if countErr := db.QueryRow(`SELECT count(*) FROM businesses`).Scan(&businesses); countErr != nil {
					fmt.Printf("    %-10s connected, schema missing (run: shopchat migrate up)\n", "Status:")
				} else {
					fmt.Printf("    %-10s connected, %d businesses\n", "Status:", businesses)
				}
			}
			db.Close()
		}
	}

	fmt.Println()
	fmt.Println("  AI backend:")
	fmt.Printf("    %-10s %s\n", "Base URL:", cfg.AI.BaseURL)
	fmt.Printf("    %-10s %s\n", "Model:", cfg.AI.Model)
	if cfg.AI.APIKey == "" {
		fmt.Printf("    %-10s NOT SET (SHOPCHAT_AI_API_KEY)\n", "API key:")
	} else {
		fmt.Printf("    %-10s set\n", "API key:")
	}

	fmt.Println()
	fmt.Println("  Channels:")
	printChannelRow("WhatsApp", cfg.Channels.WhatsApp.Enabled, cfg.Channels.WhatsApp.BridgeURL)
	printChannelRow("Instagram/Messenger", cfg.Channels.Meta.Enabled, cfg.Channels.Meta.ListenAddr+cfg.Channels.Meta.WebhookPath)
	printChannelRow("Web chat", cfg.Channels.WebChat.Enabled, cfg.Channels.WebChat.ListenAddr+cfg.Channels.WebChat.Path)
}

// printChannelRow pads with display width, not byte length, so rows stay
// aligned when endpoints carry non-ASCII text.
func printChannelRow(name string, enabled bool, endpoint string) {
	const nameCol = 22
	pad := nameCol - runewidth.StringWidth(name)
	if pad < 1 {
		pad = 1
	}
	state := "disabled"
	if enabled {
		state = "enabled "
	}
	fmt.Printf("    %s%s%s  %s\n", name, strings.Repeat(" ", pad), state, endpoint)
}
