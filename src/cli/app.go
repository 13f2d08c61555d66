package cli

import (
	"context"
	"os"

	"github.com/patrickmn/go-cache"
	"github.com/username/pitfolio/src/config"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/parsers"
	"github.com/username/pitfolio/src/processors"
	"github.com/username/pitfolio/src/services"
	"github.com/username/pitfolio/src/utils"
)

// statementCurrency is the account currency of eToro statements.
const statementCurrency = "USD"

// app holds the components shared by the commands of one invocation.
type app struct {
	cfg      *config.AppConfig
	policy   *config.TaxPolicy
	rates    *processors.ExchangeRateService
	resolver *services.CountryResolver
}

func newApp(cfg *config.AppConfig) (*app, error) {
	policy, err := config.LoadPolicy(cfg.TaxPolicyPath)
	if err != nil {
		return nil, err
	}

	client := utils.NewHTTPClient(cfg.HTTPTimeout)
	limiter := utils.NewLimiter(cfg.FeedRequestsPerSecond)

	nbp := services.NewNBPService(cfg.NBPBaseURL, client, limiter)
	rates := processors.NewExchangeRateService(nbp, cfg.LocalCurrency)

	var load services.CatalogLoader
	if _, statErr := os.Stat(cfg.InstrumentCatalogPath); statErr != nil && cfg.InstrumentCatalogURL != "" {
		logger.L.Info("Using remote instrument catalog", "url", cfg.InstrumentCatalogURL)
		load = services.RemoteCatalog(cfg.InstrumentCatalogURL, client, limiter)
	} else {
		logger.L.Info("Using instrument catalog file", "path", cfg.InstrumentCatalogPath)
		load = services.FileCatalog(cfg.InstrumentCatalogPath)
	}

	var search services.InstrumentSearchService
	if cfg.InstrumentSearchEnabled {
		search = services.NewInstrumentSearchService(cfg.InstrumentSearchURL, client, limiter)
	}

	return &app{
		cfg:      cfg,
		policy:   policy,
		rates:    rates,
		resolver: services.NewCountryResolver(load, search),
	}, nil
}

func (a *app) Close() error {
	return a.resolver.Close()
}

// reportService wires the statement pipeline.
func (a *app) reportService() (services.ReportService, error) {
	parser, err := parsers.GetParser("etoro")
	if err != nil {
		return nil, err
	}
	positions := processors.NewPositionProcessor(a.resolver, processors.PositionOptions{
		TaxYear:       a.cfg.TaxYear,
		ResolveMode:   a.cfg.TradeResolveMode,
		CryptoSymbols: a.policy.CryptoSymbols,
		IgnoredTypes:  a.policy.IgnoredTransactionTypes,
		Currency:      statementCurrency,
	})
	dividends := processors.NewDividendProcessor(a.rates, a.resolver, processors.DividendOptions{
		Policy:      a.policy,
		ResolveMode: a.cfg.DividendResolveMode,
	})

	return services.NewReportService(services.ReportDeps{
		Parser:     parser,
		Positions:  positions,
		Aggregate:  processors.NewAggregateProcessor(a.rates),
		Dividends:  dividends,
		Summary:    processors.NewSummaryProcessor(a.policy.Tolerance()),
		Prefetcher: a.rates,
		Currency:   statementCurrency,
		TaxYear:    a.cfg.TaxYear,
		RunID:      logger.RunID,
	}, cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)), nil
}

// withApp builds the components, runs fn and releases them.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(config.Cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
