package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"reklama5-scraper/config"
	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/scraper/reklama5"
	"reklama5-scraper/services"
	"reklama5-scraper/services/cache"
	"reklama5-scraper/services/publisher"
	"reklama5-scraper/storage"
	"reklama5-scraper/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Err(err, "Invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== reklama5 ingestion starting ===")
	logger.Info("Config: search=%q days=%d limit=%d details=%t workers=%d store=%s fetch=%s",
		cfg.SearchTerm, cfg.Days, cfg.Limit, cfg.EnableDetails, cfg.DetailWorkers, cfg.Store, cfg.FetchMode)

	runner, cleanup, err := build(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		logger.Err(err, "Startup failed")
		return 1
	}

	report, err := runner.Run(ctx)
	services.NewReporter(os.Stdout).Print(report)
	if err != nil {
		return 1
	}

	fmt.Printf("  Done. Aggregates → %s | Store → %s\n\n", cfg.AggregateOutputPath, cfg.Store)
	return 0
}

func parseFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("reklama5-scraper", flag.ContinueOnError)
	fs.StringVar(&cfg.SearchTerm, "search", cfg.SearchTerm, "search term")
	fs.IntVar(&cfg.Days, "days", cfg.Days, "only listings posted within this many days")
	fs.IntVar(&cfg.Limit, "limit", cfg.Limit, "stop after this many unique listings (0 = no limit)")
	baseURL := fs.String("base-url", "", "search URL to paginate; page and q parameters become placeholders")
	fs.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "hard page cap")
	fs.StringVar(&cfg.PageDelay, "page-delay", cfg.PageDelay, `delay between pages: seconds, "min-max", "random" or "none"`)
	fs.BoolVar(&cfg.EnableDetails, "details", cfg.EnableDetails, "fetch detail pages")
	fs.IntVar(&cfg.DetailWorkers, "workers", cfg.DetailWorkers, "detail workers (1-5)")
	fs.IntVar(&cfg.DetailRateLimit, "rate-limit", cfg.DetailRateLimit, "max concurrent detail requests (0 = workers)")
	fs.StringVar(&cfg.DetailDelay, "detail-delay", cfg.DetailDelay, `per-worker delay: seconds, "random" or "none"`)
	fs.IntVar(&cfg.DetailMaxItems, "max-items", cfg.DetailMaxItems, "enrich at most this many listings (0 = all)")
	fs.BoolVar(&cfg.SkipUnchanged, "skip-unchanged", cfg.SkipUnchanged, "do not write unchanged listings")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "postgres or file")
	fs.BoolVar(&cfg.ExportCSV, "export-csv", cfg.ExportCSV, "append run listings to the flat CSV export")
	fs.StringVar(&cfg.FetchMode, "fetch", cfg.FetchMode, "http or browser")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *baseURL != "" {
		tmpl, err := reklama5.BuildBaseURLTemplate(*baseURL)
		if err != nil {
			return err
		}
		cfg.BaseURLTemplate = tmpl
	}
	return nil
}

// build wires the pipeline. cleanup is always safe to call.
func build(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*services.Runner, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("Close failed: %v", err)
			}
		}
	}

	pageDelay, err := cfg.PageDelayPolicy()
	if err != nil {
		return nil, cleanup, err
	}
	detailDelay, err := cfg.DetailDelayPolicy()
	if err != nil {
		return nil, cleanup, err
	}
	policy := services.EnrichPolicy{
		Workers:   cfg.DetailWorkers,
		RateLimit: cfg.DetailRateLimit,
		Delay:     detailDelay,
		MaxItems:  cfg.DetailMaxItems,
	}
	if err := policy.Validate(); err != nil {
		return nil, cleanup, err
	}

	var fetcher reklama5.Fetcher
	switch cfg.FetchMode {
	case config.FetchBrowser:
		bf, err := reklama5.NewBrowserFetcher(cfg.ChromeBin, cfg.RequestTimeout, cfg.MaxRetries, logger)
		if err != nil {
			return nil, cleanup, apperrors.NewConfig(fmt.Sprintf("start browser: %v", err))
		}
		closers = append(closers, bf.Close)
		fetcher = bf
	default:
		fetcher = reklama5.NewHTTPFetcher(cfg.RequestTimeout, cfg.MaxRetries, logger)
	}
	site := reklama5.NewSite(fetcher, logger)

	var store storage.ListingStore
	switch cfg.Store {
	case config.StoreFile:
		store, err = storage.NewFileStore(cfg.CSVOutputPath)
	default:
		store, err = storage.NewPostgresStore(ctx, cfg.DSN(), logger)
		if err != nil {
			logger.Error("Make sure Docker is running: docker compose up -d")
		}
	}
	if err != nil {
		return nil, cleanup, apperrors.NewStore("open", "open "+cfg.Store+" store", err)
	}
	closers = append(closers, store.Close)

	var enricher *services.Enricher
	if cfg.EnableDetails {
		var details services.DetailFetcher = site
		if cfg.MemcacheAddr != "" {
			mc := cache.NewMemcacheService(cfg.MemcacheAddr)
			if err := mc.Ping(); err != nil {
				logger.Warn("Memcache at %s unavailable, detail cache disabled: %v", cfg.MemcacheAddr, err)
			} else {
				details = services.NewCachedDetailFetcher(site, mc, cfg.DetailCacheTTL, logger)
				logger.Info("Detail cache enabled (memcache %s, ttl %s)", cfg.MemcacheAddr, cfg.DetailCacheTTL)
			}
		}
		enricher, err = services.NewEnricher(details, policy, logger)
		if err != nil {
			return nil, cleanup, err
		}
	}

	classifier := &services.Classifier{DateDriftTolerance: cfg.DateDriftTolerance}
	persister := services.NewPersister(store, classifier, logger)
	persister.SkipUnchanged = cfg.SkipUnchanged

	if cfg.RedisAddr != "" {
		rp := publisher.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, 10000)
		closers = append(closers, rp.Close)
		if err := rp.Ping(ctx); err != nil {
			logger.Warn("Redis at %s unavailable, change events disabled: %v", cfg.RedisAddr, err)
		} else {
			persister.Publisher = rp
			logger.Info("Publishing change events to stream %s", cfg.RedisStream)
		}
	}

	paginator := services.NewPaginator(site, logger)
	paginator.Delay = pageDelay

	runner := services.NewRunner(services.Query{
		SearchTerm:  cfg.SearchTerm,
		URLTemplate: cfg.BaseURLTemplate,
		Days:        cfg.Days,
		Limit:       cfg.Limit,
		MaxPages:    cfg.MaxPages,
	}, paginator, enricher, persister, store, services.NewAggregator(cfg.MinPrice, logger), logger)
	runner.AggregatePath = cfg.AggregateOutputPath

	if cfg.ExportCSV {
		path := cfg.CSVOutputPath
		if cfg.Store == config.StoreFile {
			path = exportPath(path)
		}
		w, err := storage.NewCSVWriter(path)
		if err != nil {
			return nil, cleanup, apperrors.NewStore("export", "open csv export", err)
		}
		closers = append(closers, w.Close)
		runner.Exporter = w
	}

	return runner, cleanup, nil
}

// exportPath keeps the flat export apart from a file store at the same path.
func exportPath(storePath string) string {
	return strings.TrimSuffix(storePath, ".csv") + "_export.csv"
}
