package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filing is one regulatory filing row as served by the read path. The
// ingestion pipeline that produces these rows lives outside this service.
type Filing struct {
	ID              uuid.UUID `json:"id"`
	CIK             string    `json:"cik"`
	CompanyName     string    `json:"company_name"`
	FormType        string    `json:"form_type"`
	AccessionNumber string    `json:"accession_number"`
	FiledAt         time.Time `json:"filed_at"`
	DocumentURL     string    `json:"document_url"`
}

// FinancialFact is one XBRL fact attached to a company. Values are decimals;
// float64 loses precision on large monetary amounts.
type FinancialFact struct {
	CIK          string          `json:"cik"`
	Concept      string          `json:"concept"`
	Unit         string          `json:"unit"`
	Value        decimal.Decimal `json:"value"`
	FiscalYear   int             `json:"fiscal_year"`
	FiscalPeriod string          `json:"fiscal_period"`
	EndDate      time.Time       `json:"end_date"`
}

// Company is a search result over the company corpus.
type Company struct {
	CIK    string `json:"cik"`
	Name   string `json:"name"`
	Ticker string `json:"ticker,omitempty"`
}

// IssuedToken is a signed token together with its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenPair is the access/refresh pair returned by login and refresh.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
