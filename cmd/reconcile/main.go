// Package main runs a single reconciliation pass and exits. Intended
// for cron-style operation next to the long-running bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bwmarrin/discordgo"

	"wallet-roster/internal/directory"
	"wallet-roster/internal/domain"
	"wallet-roster/internal/reconcile"
	"wallet-roster/internal/roles"
	"wallet-roster/internal/sheets"
	"wallet-roster/internal/storage"
	chstore "wallet-roster/internal/storage/clickhouse"
	"wallet-roster/internal/storage/migrations"
	pgstore "wallet-roster/internal/storage/postgres"
	sheetstore "wallet-roster/internal/storage/sheets"
)

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	modeFlag := flag.String("mode", "refresh", "Pass mode: refresh, fill or prune")
	workers := flag.Int("workers", 0, "Worker pool width (0 = per-mode default)")
	dryRun := flag.Bool("dry-run", false, "Compute the diff but submit nothing")
	token := flag.String("discord-token", os.Getenv("DISCORD_TOKEN"), "Discord bot token")
	guildID := flag.String("guild-id", os.Getenv("GUILD_ID"), "Guild to resolve members against")
	spreadsheetID := flag.String("spreadsheet-id", os.Getenv("SHEETS_SPREADSHEET_ID"), "Google Sheets spreadsheet ID")
	credentialsFile := flag.String("credentials-file", os.Getenv("GOOGLE_CREDENTIALS_FILE"), "Service account JSON key file")
	rolesFile := flag.String("roles-file", envOr("PRIORITY_ROLES_FILE", "roles.json"), "Priority role list JSON file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (optional backend)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the audit trail (optional)")
	backend := flag.String("backend", envOr("STORE_BACKEND", "sheets"), "Wallet store backend: sheets or postgres")
	flag.Parse()

	logger := log.New(os.Stdout, "[reconcile] ", log.LstdFlags)

	mode, err := domain.ParseMode(*modeFlag)
	if err != nil {
		logger.Fatal(err)
	}
	if *token == "" {
		logger.Fatal("--discord-token is required")
	}
	if *guildID == "" {
		logger.Fatal("--guild-id is required")
	}

	ctx := context.Background()

	priorities, err := roles.LoadPriorityList(*rolesFile)
	if err != nil {
		logger.Fatalf("Failed to load priority roles: %v", err)
	}

	store, cleanup, err := createWalletStore(ctx, *backend, *spreadsheetID, *credentialsFile, *postgresDSN, logger)
	if err != nil {
		logger.Fatalf("Failed to create wallet store: %v", err)
	}
	defer cleanup()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("Failed to prepare wallet store: %v", err)
	}

	var audit storage.ReconcileAuditStore
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to connect audit store: %v", err)
		}
		defer conn.Close()
		audit = chstore.NewReconcileAuditStore(conn)
	}

	session, err := discordgo.New("Bot " + *token)
	if err != nil {
		logger.Fatalf("Failed to create discord session: %v", err)
	}

	dir, err := directory.NewGuildDirectory(directory.GuildDirectoryOptions{
		Session: session,
		GuildID: *guildID,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create guild directory: %v", err)
	}

	engine, err := reconcile.NewEngine(reconcile.Options{
		Store:     store,
		Directory: dir,
		Roles:     priorities,
		Audit:     audit,
		Workers:   *workers,
		DryRun:    *dryRun,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	result, err := engine.Run(ctx, mode)
	if result != nil {
		s := result.Summary
		fmt.Printf("mode=%s checked=%d changed=%d deleted=%d errors=%d duration=%s\n",
			s.Mode, s.Checked, s.Changed, s.Deleted, s.Errors, s.Duration)
	}
	if err != nil {
		logger.Fatalf("Pass failed: %v", err)
	}
}

// createWalletStore selects the record store backend.
func createWalletStore(ctx context.Context, backend, spreadsheetID, credentialsFile, postgresDSN string, logger *log.Logger) (storage.WalletStore, func(), error) {
	switch backend {
	case "postgres":
		if postgresDSN == "" {
			return nil, nil, fmt.Errorf("--postgres-dsn is required for the postgres backend")
		}
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pgstore.NewWalletStore(pool), pool.Close, nil

	case "sheets":
		if spreadsheetID == "" {
			return nil, nil, fmt.Errorf("--spreadsheet-id is required for the sheets backend")
		}
		if credentialsFile == "" {
			return nil, nil, fmt.Errorf("--credentials-file is required for the sheets backend")
		}
		ts, err := sheets.ServiceAccountTokenSource(ctx, credentialsFile)
		if err != nil {
			return nil, nil, err
		}
		client := sheets.NewClient(spreadsheetID, sheets.WithTokenSource(ts))
		return sheetstore.NewWalletStore(client, logger), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (want sheets or postgres)", backend)
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
