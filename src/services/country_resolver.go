package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/pitfolio/src/database"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/utils"
)

// CountryResolver maps instruments to tax countries using the broker's
// instrument catalog and, as a last resort, the instrument search feed.
type CountryResolver struct {
	load   CatalogLoader
	search InstrumentSearchService // nil disables the search tier

	mu    sync.Mutex
	store *database.InstrumentStore

	memo *cache.Cache
}

type resolution struct {
	country models.Country
	err     error
}

// NewCountryResolver creates a resolver. The catalog is loaded on first use.
func NewCountryResolver(load CatalogLoader, search InstrumentSearchService) *CountryResolver {
	return &CountryResolver{
		load:   load,
		search: search,
		memo:   cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

// Close releases the catalog database.
func (r *CountryResolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

// catalog loads the instrument catalog into an in-memory store. A failed load
// is not remembered, so the next call tries again.
func (r *CountryResolver) catalog(ctx context.Context) (*database.InstrumentStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		return r.store, nil
	}

	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	store, err := database.Open("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if err := store.Insert(ctx, records); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	r.store = store
	return store, nil
}

// Resolve returns the tax country of an instrument. Answers, errors included,
// are memoized so the same query always gets the same answer.
func (r *CountryResolver) Resolve(ctx context.Context, query models.InstrumentQuery, mode models.ResolveMode) (models.Country, error) {
	key := strings.ToLower(fmt.Sprintf("%s|%s|%s|%s", query.DisplayName, query.Symbol, query.ISIN, mode))
	if cached, found := r.memo.Get(key); found {
		res := cached.(resolution)
		return res.country, res.err
	}

	country, err := r.resolve(ctx, query, mode)
	if err != nil && !models.IsFatal(err) {
		// transport and catalog failures are not memoized
		return country, err
	}
	r.memo.Set(key, resolution{country: country, err: err}, cache.NoExpiration)
	return country, err
}

type lookupTier struct {
	field database.Field
	key   string
}

func (r *CountryResolver) resolve(ctx context.Context, query models.InstrumentQuery, mode models.ResolveMode) (models.Country, error) {
	store, err := r.catalog(ctx)
	if err != nil {
		return models.UnknownCountry, err
	}
	log := logger.FromContext(ctx)

	q := normalizeQuery(query)
	tiers := []lookupTier{
		{database.FieldISIN, q.isin},
		{database.FieldFullSymbol, q.fullSymbol},
		{database.FieldSymbol, q.shortSymbol},
		{database.FieldDisplayName, q.name},
	}

	var ambiguous []models.Country
	for _, tier := range tiers {
		matches, err := store.Find(ctx, tier.field, tier.key)
		if err != nil {
			return models.UnknownCountry, err
		}
		countries := distinctCountries(matches)
		switch {
		case len(countries) == 1:
			log.Debug("Instrument resolved", "tier", tier.field, "key", tier.key, "country", countries[0])
			return countries[0], nil
		case len(countries) > 1 && ambiguous == nil:
			ambiguous = countries
		}
	}

	if r.search != nil {
		text := q.name
		if text == "" {
			text = q.shortSymbol
		}
		found, err := r.searchCountries(ctx, text)
		if err != nil {
			return models.UnknownCountry, err
		}
		// an ambiguous catalog answer is settled only by a unanimous search
		if len(found) == 1 || (len(found) > 1 && ambiguous == nil) {
			log.Info("Instrument resolved by search", "query", text, "country", found[0], "candidates", len(found))
			return found[0], nil
		}
	}

	if ambiguous != nil {
		return models.UnknownCountry, &models.AmbiguousInstrumentError{Query: query, Countries: ambiguous}
	}
	if mode == models.ResolveTolerant {
		log.Warn("Unknown instrument, country left unknown", "name", query.DisplayName, "symbol", query.Symbol, "isin", query.ISIN)
		return models.UnknownCountry, nil
	}
	return models.UnknownCountry, &models.UnresolvedInstrumentError{Query: query}
}

// searchCountries lists the distinct countries of the search quotes, in the
// order the feed ranked them.
func (r *CountryResolver) searchCountries(ctx context.Context, text string) ([]models.Country, error) {
	if text == "" {
		return nil, nil
	}
	results, err := r.search.Search(ctx, text)
	if err != nil {
		return nil, err
	}
	var out []models.Country
	for _, res := range results {
		if country, ok := SearchResultCountry(res); ok && !slices.Contains(out, country) {
			out = append(out, country)
		}
	}
	return out, nil
}

type normalizedQuery struct {
	isin        string
	fullSymbol  string
	shortSymbol string
	name        string
}

// normalizeQuery turns broker spellings into catalog keys: "BP.L/GBX" has full
// symbol "bp.l" and short symbol "bp", "BARC/GBX" gets the London suffix,
// "AAPL.US/USD" is plain "aapl".
func normalizeQuery(q models.InstrumentQuery) normalizedQuery {
	n := normalizedQuery{isin: database.Key(q.ISIN)}

	ticker, quote, _ := strings.Cut(database.Key(q.Symbol), "/")
	ticker = strings.TrimSuffix(strings.TrimSpace(ticker), ".us")
	n.fullSymbol, n.shortSymbol = ticker, ticker
	if i := strings.Index(ticker, "."); i > 0 {
		n.shortSymbol = ticker[:i]
	} else if suffix, ok := utils.SuffixForQuoteCurrency(quote); ok && ticker != "" {
		n.fullSymbol = ticker + suffix
	}

	n.name = database.Key(q.DisplayName)
	for _, verb := range []string{"buy ", "sell "} {
		n.name = strings.TrimPrefix(n.name, verb)
	}
	return n
}

// MatchCountry maps a catalog record to a tax country.
func MatchCountry(m models.InstrumentRecord) (models.Country, bool) {
	switch strings.ToLower(strings.TrimSpace(m.InstrumentType)) {
	case "cryptocurrencies":
		return models.CryptoCountry, true
	case "currencies", "indices", "etf", "commodities":
		return models.CfdCountry, true
	}
	code := strings.ToUpper(strings.TrimSpace(m.ISINCountryCode))
	if len(code) == 2 && code != "XS" && code != "EU" {
		return models.RealCountry(code), true
	}
	if country, ok := utils.CountryFromISIN(m.ISIN); ok {
		return country, true
	}
	return utils.CountryForExchange(m.Exchange)
}

func distinctCountries(matches []models.InstrumentRecord) []models.Country {
	seen := make(map[models.Country]bool)
	var out []models.Country
	for _, m := range matches {
		country, ok := MatchCountry(m)
		if !ok || seen[country] {
			continue
		}
		seen[country] = true
		out = append(out, country)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
