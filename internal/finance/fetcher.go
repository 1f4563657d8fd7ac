// Package finance reads data from the finance service on behalf of a session.
package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"budgetbuddy/internal/apiclient"
	"budgetbuddy/internal/apierr"
	"budgetbuddy/internal/i18n"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/models"
)

const transactionsPath = "/transactions"

// FetchOptions narrows a transactions read.
type FetchOptions struct {
	// Type filters server-side by transaction type; empty means all.
	Type models.TransactionType
}

// Fetcher performs authenticated reads of the transaction list.
type Fetcher struct {
	api    *apiclient.Client
	loc    *i18n.Localizer
	logger *log.Logger
}

// NewFetcher creates a Fetcher for the finance service behind api.
func NewFetcher(api *apiclient.Client, loc *i18n.Localizer, logger *log.Logger) *Fetcher {
	return &Fetcher{
		api:    api,
		loc:    loc,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentFinance),
	}
}

// FetchTransactions returns the user's transactions exactly as the server
// ordered them. The result is either the complete list or an error.
func (f *Fetcher) FetchTransactions(ctx context.Context, token string, opts FetchOptions) ([]models.Transaction, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apierr.MissingToken(i18n.KeyMissingToken, f.loc.T(i18n.KeyMissingToken))
	}

	var query url.Values
	if opts.Type != "" {
		if opts.Type != models.TransactionIncome && opts.Type != models.TransactionExpense {
			return nil, apierr.Validation("", fmt.Sprintf("unknown transaction type %q", opts.Type))
		}
		query = url.Values{"type": {string(opts.Type)}}
	}

	resp, err := f.api.Get(ctx, transactionsPath, query, token)

	var (
		status int
		body   []byte
	)
	if resp != nil {
		status, body = resp.Status, resp.Body
	}
	if classified := apierr.ClassifyFetch(status, body, err, f.loc); classified != nil {
		f.logger.WarnContext(ctx, "transactions read failed",
			log.FieldOperation, log.OpFetch,
			log.FieldErrorKind, string(apierr.KindOf(classified)),
			log.FieldStatusCode, status,
			log.FieldError, err)
		return nil, classified
	}

	var txs []models.Transaction
	if err := json.Unmarshal(body, &txs); err != nil {
		f.logger.ErrorContext(ctx, "decode transactions", log.FieldOperation, log.OpFetch, log.FieldError, err)
		return nil, apierr.Unknown(i18n.KeyUnknown, f.loc.T(i18n.KeyUnknown), fmt.Errorf("decode transactions: %w", err))
	}
	if txs == nil {
		txs = []models.Transaction{}
	}

	f.logger.DebugContext(ctx, "transactions read", log.FieldOperation, log.OpFetch, log.FieldCount, len(txs))
	return txs, nil
}
