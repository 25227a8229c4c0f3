package store

import (
	"context"
	"fmt"

	"github.com/edgar-filings-service/internal/model"
)

func (p *Postgres) ListFilings(ctx context.Context, filters FilingFilters) ([]*model.Filing, int, error) {
	where := ""
	args := []interface{}{}
	argIdx := 1

	if filters.CIK != "" {
		where += fmt.Sprintf(" AND cik = $%d", argIdx)
		args = append(args, filters.CIK)
		argIdx++
	}
	if filters.FormType != "" {
		where += fmt.Sprintf(" AND form_type = $%d", argIdx)
		args = append(args, filters.FormType)
		argIdx++
	}

	var total int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM filings WHERE 1=1`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count filings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, cik, company_name, form_type, accession_number, filed_at, document_url
		FROM filings WHERE 1=1%s
		ORDER BY filed_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIdx, argIdx+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list filings: %w", err)
	}
	defer rows.Close()

	var filings []*model.Filing
	for rows.Next() {
		var f model.Filing
		if err := rows.Scan(&f.ID, &f.CIK, &f.CompanyName, &f.FormType, &f.AccessionNumber, &f.FiledAt, &f.DocumentURL); err != nil {
			return nil, 0, fmt.Errorf("scan filing: %w", err)
		}
		filings = append(filings, &f)
	}
	return filings, total, rows.Err()
}

func (p *Postgres) ListFacts(ctx context.Context, cik string, offset, limit int) ([]*model.FinancialFact, int, error) {
	var total int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM financial_facts WHERE cik = $1`, cik).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count facts: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT cik, concept, unit, value, fiscal_year, fiscal_period, end_date
		FROM financial_facts
		WHERE cik = $1
		ORDER BY end_date DESC, concept
		LIMIT $2 OFFSET $3
	`, cik, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var facts []*model.FinancialFact
	for rows.Next() {
		var f model.FinancialFact
		if err := rows.Scan(&f.CIK, &f.Concept, &f.Unit, &f.Value, &f.FiscalYear, &f.FiscalPeriod, &f.EndDate); err != nil {
			return nil, 0, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, &f)
	}
	return facts, total, rows.Err()
}

func (p *Postgres) SearchCompanies(ctx context.Context, query string, offset, limit int) ([]*model.Company, int, error) {
	pattern := "%" + query + "%"

	var total int
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM companies WHERE name ILIKE $1 OR ticker ILIKE $1
	`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count companies: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT cik, name, ticker FROM companies
		WHERE name ILIKE $1 OR ticker ILIKE $1
		ORDER BY name
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search companies: %w", err)
	}
	defer rows.Close()

	var companies []*model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.CIK, &c.Name, &c.Ticker); err != nil {
			return nil, 0, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, &c)
	}
	return companies, total, rows.Err()
}
