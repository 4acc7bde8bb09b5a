package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"stocks-simulator/auth"
	"stocks-simulator/config"
	"stocks-simulator/database"
	"stocks-simulator/handlers"
	"stocks-simulator/ledger"
	"stocks-simulator/quotes"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "stocks-simulator",
	Short: "Paper trading with real stock quotes",
	Long: `stocks-simulator keeps a cash balance, portfolio and transaction history per account
and prices every buy and sell with live quotes from Alpha Vantage.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		migrate, err := cmd.Flags().GetBool("migrate")
		if err != nil {
			return fmt.Errorf("error getting migrate flag: %w", err)
		}
		return serve(cmd.Context(), migrate)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		db, err := config.InitDB(cfg, logger.WithField("component", "database"))
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Info("Migration complete")
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <account-id>",
	Short: "Print the transaction history of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account id %q: %w", args[0], err)
		}
		asCSV, err := cmd.Flags().GetBool("csv")
		if err != nil {
			return fmt.Errorf("error getting csv flag: %w", err)
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		db, err := config.InitDB(cfg, logger.WithField("component", "database"))
		if err != nil {
			return err
		}
		defer closeDB(db)

		// Listing history never looks up quotes.
		svc := ledger.NewService(database.NewStore(db), nil, ledger.WithLogger(logger.WithField("component", "ledger")))
		records, err := svc.History(cmd.Context(), uint(accountID))
		if err != nil {
			return err
		}
		if asCSV {
			return writeHistoryCSV(cmd.OutOrStdout(), records)
		}
		writeHistoryTable(cmd.OutOrStdout(), records)
		return nil
	},
}

func setup() (*config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating logger: %w", err)
	}
	return cfg, logger, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func serve(ctx context.Context, migrate bool) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := config.InitDB(cfg, logger.WithField("component", "database"))
	if err != nil {
		return err
	}
	defer closeDB(db)
	if migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	rdb, err := config.InitRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	quoteLog := logger.WithField("component", "quotes")
	var provider ledger.QuoteProvider = quotes.NewRetrying(
		quotes.NewAlphaVantage(cfg.AlphaVantageAPIKey,
			quotes.WithTimeout(cfg.QuoteTimeout),
			quotes.WithLogger(quoteLog),
		),
		cfg.QuoteRetries, 200*time.Millisecond, quoteLog,
	)

	opts := []ledger.Option{
		ledger.WithLogger(logger.WithField("component", "ledger")),
		ledger.WithQuoteTimeout(cfg.QuoteTimeout * time.Duration(cfg.QuoteRetries+1)),
	}
	var tokens auth.TokenStore
	if rdb != nil {
		opts = append(opts, ledger.WithQuoteCache(quotes.NewCached(provider, rdb, cfg.QuoteCacheTTL, quoteLog)))
		tokens = auth.NewRedisTokenStore(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set. Quotes are not cached and sessions are kept in memory")
		if tokens, err = auth.NewMemoryTokenStore(cfg.TokenCacheSize); err != nil {
			return fmt.Errorf("error creating token store: %w", err)
		}
	}

	store := database.NewStore(db, database.WithStoreLogger(logger.WithField("component", "store")))
	svc := ledger.NewService(store, provider, opts...)
	h := handlers.New(svc, auth.NewIssuer(cfg.JWTSecret), tokens, logger.WithField("component", "http"))

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: handlers.NewRouter(h),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", cfg.ServerAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	serveCmd.Flags().Bool("migrate", false, "Migrate the database before serving")
	historyCmd.Flags().Bool("csv", false, "Print CSV instead of a table")
	rootCmd.AddCommand(serveCmd, migrateCmd, historyCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("error running command: %v", err)
	}
}
