package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Dividend credit policies. The rule for the foreign tax credit changed over the
// years the tool has been used, so it is chosen per run.
const (
	CreditTreaty   = "treaty"   // treaty rate of the source country
	CreditWithheld = "withheld" // rate actually withheld by the broker
	CreditMax      = "max"      // greater of the two
)

// TaxPolicy holds the tax-law parameters of a run.
type TaxPolicy struct {
	TaxRate              float64            `json:"tax_rate" yaml:"tax_rate"`
	DividendCreditPolicy string             `json:"dividend_credit_policy" yaml:"dividend_credit_policy"`
	CapCreditAtDue       bool               `json:"cap_credit_at_due" yaml:"cap_credit_at_due"`
	TreatyRates          map[string]float64 `json:"treaty_rates" yaml:"treaty_rates"`

	CryptoSymbols           []string `json:"crypto_symbols" yaml:"crypto_symbols"`
	IgnoredTransactionTypes []string `json:"ignored_transaction_types,omitempty" yaml:"ignored_transaction_types,omitempty"`

	SummaryTolerance float64 `json:"summary_tolerance" yaml:"summary_tolerance"`
}

// InvalidValueError reports a configuration value outside its domain.
type InvalidValueError struct {
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// DefaultPolicy returns the parameters of Polish PIT-38 as used for eToro statements.
func DefaultPolicy() *TaxPolicy {
	return &TaxPolicy{
		TaxRate:              0.19,
		DividendCreditPolicy: CreditTreaty,
		CapCreditAtDue:       true,
		TreatyRates: map[string]float64{
			"US": 0.15,
			"GB": 0,
			"DE": 0.15,
			"FR": 0.15,
			"ES": 0.15,
			"NL": 0.15,
			"CH": 0.15,
			"CA": 0.15,
			"IE": 0.15,
			"DK": 0.15,
			"NO": 0.15,
			"SE": 0.15,
			"FI": 0.15,
			"IT": 0.15,
			"HK": 0,
			"CN": 0.10,
		},
		CryptoSymbols: []string{
			"BTC/USD", "ETH/USD", "BCH/USD", "XRP/USD", "DASH/USD", "LTC/USD", "ETC/USD", "ADA/USD",
			"IOTA/USD", "MIOTA/USD", "XLM/USD", "EOS/USD", "NEO/USD", "TRX/USD", "ZEC/USD", "BNB/USD", "XTZ/USD",
		},
		SummaryTolerance: 0.01,
	}
}

// LoadPolicy reads a policy file (YAML or JSON) on top of the defaults.
// An empty path returns the defaults.
func LoadPolicy(path string) (*TaxPolicy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tax policy file: %w", err)
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, p); err != nil {
		p = DefaultPolicy()
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("parse tax policy (tried YAML and JSON): %w", err)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("tax policy %s: %w", path, err)
	}
	return p, nil
}

// Validate checks the policy for values the calculation cannot use.
func (p *TaxPolicy) Validate() error {
	if p.TaxRate <= 0 || p.TaxRate >= 1 {
		return &InvalidValueError{Field: "tax_rate", Value: fmt.Sprint(p.TaxRate)}
	}
	switch p.DividendCreditPolicy {
	case CreditTreaty, CreditWithheld, CreditMax:
	default:
		return &InvalidValueError{Field: "dividend_credit_policy", Value: p.DividendCreditPolicy}
	}
	for code, rate := range p.TreatyRates {
		if rate < 0 || rate >= 1 {
			return &InvalidValueError{Field: "treaty_rates." + code, Value: fmt.Sprint(rate)}
		}
	}
	if p.SummaryTolerance < 0 {
		return &InvalidValueError{Field: "summary_tolerance", Value: fmt.Sprint(p.SummaryTolerance)}
	}
	return nil
}

// Rate returns the flat local tax rate.
func (p *TaxPolicy) Rate() decimal.Decimal {
	return decimal.NewFromFloat(p.TaxRate)
}

// TreatyRate returns the treaty withholding rate for an alpha-2 country code.
func (p *TaxPolicy) TreatyRate(code string) (decimal.Decimal, bool) {
	rate, ok := p.TreatyRates[strings.ToUpper(code)]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(rate), true
}

// Tolerance returns the accepted difference in summary cross-checks.
func (p *TaxPolicy) Tolerance() decimal.Decimal {
	return decimal.NewFromFloat(p.SummaryTolerance)
}
