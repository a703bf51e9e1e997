package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/coinfolio/internal/api"
	"github.com/mtlprog/coinfolio/internal/coingecko"
	"github.com/mtlprog/coinfolio/internal/config"
	"github.com/mtlprog/coinfolio/internal/database"
	"github.com/mtlprog/coinfolio/internal/directory"
	"github.com/mtlprog/coinfolio/internal/export"
	"github.com/mtlprog/coinfolio/internal/holdings"
	"github.com/mtlprog/coinfolio/internal/portfolio"
	"github.com/mtlprog/coinfolio/internal/price"
	"github.com/mtlprog/coinfolio/internal/quotes"
	"github.com/mtlprog/coinfolio/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// app bundles the services shared by all commands.
type app struct {
	cfg       config.Config
	directory *directory.Directory
	prices    *price.Service
	holdings  *holdings.Store
	portfolio *portfolio.Service
	quotes    *quotes.Service
	pool      *pgxpool.Pool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:   "coinfolio",
		Usage:  "cryptocurrency price lookup and portfolio tracker",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:      "price",
				Usage:     "print current quotes for the given symbols",
				ArgsUsage: "SYMBOL...",
				Action:    printPrices,
			},
			{
				Name:  "export",
				Usage: "write the portfolio valuation to XLSX or Google Sheets",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Value:   "valuation.xlsx",
						Usage:   "output file, ignored when Google Sheets is configured",
					},
				},
				Action: exportValuation,
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("coinfolio: %v", err)
	}
}

func newApp(ctx context.Context, withDatabase bool) (*app, error) {
	cfg := config.Load()

	client := coingecko.NewClient(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey, cfg.CoinGeckoTimeout, cfg.CoinGeckoRatePerMinute)
	dir := directory.New(client, directory.Config{
		VSCurrency:   cfg.VSCurrency,
		PageSize:     cfg.DirectoryPageSize,
		TTL:          cfg.DirectoryTTL,
		RetryBackoff: cfg.DirectoryRetryBackoff,
	})
	prices := price.NewService(dir, client, cfg.VSCurrency, cfg.PriceTTL)

	repo := holdings.NewFileRepository(cfg.HoldingsFile)
	initial, err := repo.Load(ctx)
	if err != nil {
		slog.Warn("holdings file unreadable, starting empty", "path", repo.Path(), "error", err)
		initial = nil
	}
	store := holdings.NewStore(repo, initial)

	a := &app{
		cfg:       cfg,
		directory: dir,
		prices:    prices,
		holdings:  store,
		portfolio: portfolio.NewService(store, prices, dir),
	}

	var archive quotes.Repository
	if withDatabase && cfg.DatabaseURL != "" {
		pool, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		archive = quotes.NewPgRepository(pool)
	}
	a.quotes = quotes.NewService(store, prices, archive)

	return a, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func openDatabase(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return pool, nil
}

func serve(c *cli.Context) error {
	ctx := c.Context

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	if a.pool == nil {
		slog.Info("DATABASE_URL not set, quote archive disabled")
	} else if n, err := a.quotes.WarmFromArchive(ctx); err != nil {
		slog.Warn("failed to warm price cache from archive", "error", err)
	} else {
		slog.Info("price cache warmed from archive", "quotes", n)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go worker.NewQuoteWorker(a.quotes, a.cfg.QuoteWorkerInterval).Run(ctx)

	srv := api.NewServer(
		a.cfg.HTTPPort,
		a.cfg.CORSOrigin,
		api.NewHandler(a.directory, a.prices),
		api.NewPortfolioHandler(a.holdings, a.portfolio),
	)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr, "holdings", a.holdings.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("Shutdown complete")
	return nil
}

func printPrices(c *cli.Context) error {
	symbols := c.Args().Slice()
	if len(symbols) == 0 {
		return cli.Exit("usage: coinfolio price SYMBOL...", 2)
	}

	a, err := newApp(c.Context, false)
	if err != nil {
		return err
	}
	defer a.close()

	failed := 0
	for _, s := range symbols {
		q, err := a.prices.GetPrice(c.Context, s)
		if err != nil {
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", s, err)
			failed++
			continue
		}
		fmt.Fprintf(c.App.Writer, "%-8s %-24s %16.8f %s %+7.2f%%\n", q.Symbol, q.ID, q.Price, q.Currency, q.Change24h)
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d lookups failed", failed, len(symbols)), 1)
	}
	return nil
}

func exportValuation(c *cli.Context) error {
	a, err := newApp(c.Context, false)
	if err != nil {
		return err
	}
	defer a.close()

	var writer export.Writer
	target := c.String("out")
	if a.cfg.SheetsEnabled() {
		sw, err := export.NewSheetsWriter(c.Context, a.cfg.SheetsSpreadsheetID, a.cfg.GoogleCredentialsJSON)
		if err != nil {
			return err
		}
		writer = sw
		target = "spreadsheet " + a.cfg.SheetsSpreadsheetID
	} else {
		writer = export.NewXLSXWriter(target)
	}

	v, err := export.NewService(a.portfolio, writer).Export(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "exported %d holdings to %s (total %s %s)\n", len(v.Holdings), target, v.Total.StringFixed(2), v.Currency)
	return nil
}
