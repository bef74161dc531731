// Package main runs the roster bot: Discord interaction surface,
// wallet record store warm-up and the Prometheus metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"wallet-roster/internal/bot"
	"wallet-roster/internal/directory"
	"wallet-roster/internal/observability"
	"wallet-roster/internal/reconcile"
	"wallet-roster/internal/roles"
	"wallet-roster/internal/sheets"
	"wallet-roster/internal/storage"
	chstore "wallet-roster/internal/storage/clickhouse"
	"wallet-roster/internal/storage/memory"
	"wallet-roster/internal/storage/migrations"
	pgstore "wallet-roster/internal/storage/postgres"
	sheetstore "wallet-roster/internal/storage/sheets"
	"wallet-roster/internal/wallet"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	token := flag.String("discord-token", os.Getenv("DISCORD_TOKEN"), "Discord bot token")
	guildID := flag.String("guild-id", os.Getenv("GUILD_ID"), "Guild for command registration (empty = global)")
	spreadsheetID := flag.String("spreadsheet-id", os.Getenv("SHEETS_SPREADSHEET_ID"), "Google Sheets spreadsheet ID")
	credentialsFile := flag.String("credentials-file", os.Getenv("GOOGLE_CREDENTIALS_FILE"), "Service account JSON key file")
	rolesFile := flag.String("roles-file", envOr("PRIORITY_ROLES_FILE", "roles.json"), "Priority role list JSON file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (optional backend)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the audit trail (optional)")
	backend := flag.String("backend", envOr("STORE_BACKEND", "sheets"), "Wallet store backend: sheets, postgres or memory")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *token == "" {
		logger.Fatal("--discord-token is required")
	}
	if *guildID == "" {
		logger.Fatal("--guild-id is required for the membership directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	priorities, err := roles.LoadPriorityList(*rolesFile)
	if err != nil {
		logger.Fatalf("Failed to load priority roles: %v", err)
	}
	logger.Printf("Priority roles: %v", priorities.Labels())

	store, cleanup, err := createWalletStore(ctx, *backend, *spreadsheetID, *credentialsFile, *postgresDSN, logger)
	if err != nil {
		logger.Fatalf("Failed to create wallet store: %v", err)
	}
	defer cleanup()

	// Warm up the store so the first interaction does not pay for it.
	warmCtx, warmCancel := context.WithTimeout(ctx, 60*time.Second)
	if err := store.EnsureSchema(warmCtx); err != nil {
		warmCancel()
		logger.Fatalf("Failed to prepare wallet store: %v", err)
	}
	warmCancel()

	audit, auditCleanup, err := createAuditStore(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to create audit store: %v", err)
	}
	defer auditCleanup()

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

	metrics := observability.DefaultMetrics

	walletSvc, err := wallet.NewService(wallet.Options{
		Store:     store,
		Directory: dir,
		Roles:     priorities,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create wallet service: %v", err)
	}

	engine, err := reconcile.NewEngine(reconcile.Options{
		Store:     store,
		Directory: dir,
		Roles:     priorities,
		Audit:     audit,
		Notifier:  bot.NewDMNotifier(session, logger),
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create reconcile engine: %v", err)
	}

	b, err := bot.New(bot.Options{
		Session: session,
		Wallet:  walletSvc,
		Engine:  engine,
		GuildID: *guildID,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create bot: %v", err)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			logger.Printf("Metrics server stopped: %v", err)
		}
	}()

	if err := b.Start(); err != nil {
		logger.Fatalf("Failed to start bot: %v", err)
	}
	logger.Println("Bot is running. Press Ctrl+C to exit.")

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down...", sig)

	if err := b.Stop(); err != nil {
		logger.Printf("Session close failed: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createWalletStore selects the record store backend.
func createWalletStore(ctx context.Context, backend, spreadsheetID, credentialsFile, postgresDSN string, logger *log.Logger) (storage.WalletStore, func(), error) {
	switch backend {
	case "memory":
		return memory.NewWalletStore(), func() {}, nil

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
		return nil, nil, fmt.Errorf("unknown store backend %q (want sheets, postgres or memory)", backend)
	}
}

// createAuditStore connects the optional ClickHouse audit trail.
func createAuditStore(ctx context.Context, dsn string) (storage.ReconcileAuditStore, func(), error) {
	if dsn == "" {
		return nil, func() {}, nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return chstore.NewReconcileAuditStore(conn), func() { conn.Close() }, nil
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
