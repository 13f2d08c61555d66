// src/models/country.go
package models

import "strings"

type countryTag uint8

const (
	tagUnknown countryTag = iota
	tagReal
	tagCrypto
	tagCfd
	tagDividend
)

// Country is the tax jurisdiction of an entry: either a real country (ISO 3166
// alpha-2 code) or one of the sentinel categories. The zero value is UnknownCountry.
type Country struct {
	tag  countryTag
	code string
}

var (
	UnknownCountry  = Country{tag: tagUnknown}
	CryptoCountry   = Country{tag: tagCrypto}
	CfdCountry      = Country{tag: tagCfd}
	DividendCountry = Country{tag: tagDividend}
)

// RealCountry builds a country tag from an alpha-2 code.
func RealCountry(code string) Country {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return UnknownCountry
	}
	return Country{tag: tagReal, code: code}
}

func (c Country) IsReal() bool     { return c.tag == tagReal }
func (c Country) IsCrypto() bool   { return c.tag == tagCrypto }
func (c Country) IsCfd() bool      { return c.tag == tagCfd }
func (c Country) IsDividend() bool { return c.tag == tagDividend }
func (c Country) IsUnknown() bool  { return c.tag == tagUnknown }

// Code returns the alpha-2 code of a real country and "" for sentinels.
func (c Country) Code() string { return c.code }

func (c Country) String() string {
	switch c.tag {
	case tagReal:
		return c.code
	case tagCrypto:
		return "CRYPTO"
	case tagCfd:
		return "CFD"
	case tagDividend:
		return "DIVIDEND"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets Country be used as a JSON object key.
func (c Country) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
