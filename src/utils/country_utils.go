package utils

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/username/pitfolio/src/models"
)

type CountryInfo struct {
	Country string `json:"country"`
	Polish  string `json:"polish"`
	Alpha2  string `json:"alpha2"`
	Alpha3  string `json:"alpha3"`
	Numeric string `json:"numeric"`
}

//go:embed countries.json
var countryData []byte

var (
	countryMap map[string]CountryInfo
	loadOnce   sync.Once
	loadError  error
)

func loadCountries() error {
	loadOnce.Do(func() {
		var countries []CountryInfo
		if err := json.Unmarshal(countryData, &countries); err != nil {
			loadError = fmt.Errorf("failed to unmarshal embedded country data: %w", err)
			return
		}
		countryMap = make(map[string]CountryInfo, len(countries))
		for _, country := range countries {
			countryMap[strings.ToUpper(country.Alpha2)] = country
		}
	})
	return loadError
}

// LookupCountry returns the reference entry for an alpha-2 code.
func LookupCountry(alpha2 string) (CountryInfo, bool) {
	if err := loadCountries(); err != nil {
		return CountryInfo{}, false
	}
	info, ok := countryMap[strings.ToUpper(strings.TrimSpace(alpha2))]
	return info, ok
}

// CountryFromISIN reads the country prefix of an ISIN. Supranational prefixes
// (XS, EU) and unknown codes are not countries.
func CountryFromISIN(isin string) (models.Country, bool) {
	isin = strings.TrimSpace(isin)
	if len(isin) < 2 {
		return models.UnknownCountry, false
	}
	if _, ok := LookupCountry(isin[:2]); !ok {
		return models.UnknownCountry, false
	}
	return models.RealCountry(isin[:2]), true
}

// CountryName renders a country for the report, e.g. "840 - Stany Zjednoczone Ameryki".
func CountryName(c models.Country) string {
	switch {
	case c.IsCrypto():
		return "Kryptowaluty"
	case c.IsCfd():
		return "CFD (Cypr)"
	case c.IsDividend():
		return "Dywidendy"
	case c.IsUnknown():
		return "Nieznany"
	}
	info, ok := LookupCountry(c.Code())
	if !ok {
		return "Unknown Code: " + c.Code()
	}
	numericCode := strings.TrimSpace(info.Numeric)
	if numericCode == "" {
		numericCode = "N/A"
	}
	return fmt.Sprintf("%s - %s", numericCode, info.Polish)
}

// exchangeCountries maps the exchange names used in the broker's instrument list.
var exchangeCountries = map[string]models.Country{
	"fx":               models.CfdCountry,
	"commodity":        models.CfdCountry,
	"digital currency": models.CryptoCountry,

	"nsdq":                models.RealCountry("US"),
	"nasdaq":              models.RealCountry("US"),
	"nyse":                models.RealCountry("US"),
	"hong kong exchanges": models.RealCountry("HK"),
	"lse":                 models.RealCountry("GB"),
	"six":                 models.RealCountry("CH"),
	"bolsa de madrid":     models.RealCountry("ES"),
	"euronext paris":      models.RealCountry("FR"),
	"euronext amsterdam":  models.RealCountry("NL"),
	"euronext brussels":   models.RealCountry("BE"),
	"euronext lisbon":     models.RealCountry("PT"),
	"borsa italiana":      models.RealCountry("IT"),
	"fra":                 models.RealCountry("DE"),
	"xetra":               models.RealCountry("DE"),
	"cse":                 models.RealCountry("CA"),
	"tsx":                 models.RealCountry("CA"),
	"hel":                 models.RealCountry("FI"),
	"oslo":                models.RealCountry("NO"),
	"stockholm":           models.RealCountry("SE"),
	"copenhagen":          models.RealCountry("DK"),
}

// CountryForExchange maps an exchange name from the instrument list.
func CountryForExchange(exchange string) (models.Country, bool) {
	c, ok := exchangeCountries[strings.ToLower(strings.TrimSpace(exchange))]
	return c, ok
}

// searchExchangeCountries maps exchange codes returned by the instrument search feed.
var searchExchangeCountries = map[string]string{
	"NMS": "US", "NYQ": "US", "NGM": "US", "NCM": "US", "ASE": "US", "PCX": "US", "BTS": "US", "PNK": "US",
	"LSE": "GB", "IOB": "GB",
	"GER": "DE", "FRA": "DE", "ETR": "DE", "STU": "DE", "MUN": "DE", "BER": "DE",
	"PAR": "FR", "AMS": "NL", "BRU": "BE", "LIS": "PT", "MIL": "IT", "MCE": "ES",
	"EBS": "CH", "CPH": "DK", "OSL": "NO", "STO": "SE", "HEL": "FI", "VIE": "AT", "ISE": "IE",
	"TOR": "CA", "VAN": "CA", "HKG": "HK", "SHH": "CN", "SHZ": "CN", "JPX": "JP", "TAI": "TW",
	"ASX": "AU", "SES": "SG", "SAO": "BR", "TLV": "IL", "WSE": "PL",
}

// CountryForSearchExchange maps an exchange code of the search feed.
func CountryForSearchExchange(code string) (models.Country, bool) {
	alpha2, ok := searchExchangeCountries[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return models.UnknownCountry, false
	}
	return models.RealCountry(alpha2), true
}

// quoteCurrencySuffixes maps quote currencies that imply an exchange to that
// exchange's ticker suffix, for symbols reported without one ("BARC/GBX").
var quoteCurrencySuffixes = map[string]string{
	"gbx": ".l",
	"gbp": ".l",
	"dkk": ".co",
	"chf": ".zu",
}

// SuffixForQuoteCurrency returns the ticker suffix implied by a quote currency.
func SuffixForQuoteCurrency(currency string) (string, bool) {
	s, ok := quoteCurrencySuffixes[strings.ToLower(strings.TrimSpace(currency))]
	return s, ok
}
