package ui

import (
	"context"
	"sync"

	"budgetbuddy/internal/apierr"
	"budgetbuddy/internal/finance"
	"budgetbuddy/internal/i18n"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/session"
)

// PanelState is a state of the transaction panel.
type PanelState string

const (
	PanelUnmounted PanelState = "unmounted"
	PanelLoading   PanelState = "loading"
	PanelLoaded    PanelState = "loaded"
	PanelErrored   PanelState = "errored"
)

// TransactionFetcher reads transactions. *finance.Fetcher implements it.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, token string, opts finance.FetchOptions) ([]models.Transaction, error)
}

// PanelSnapshot is a copy of the panel's observable state.
type PanelSnapshot struct {
	State        PanelState
	Transactions []models.Transaction
	Summary      Summary
	Err          error
	ErrorMessage string
	ErrorKind    apierr.Kind
}

// PanelOption configures a Panel.
type PanelOption func(*Panel)

// WithFilter restricts the panel to one transaction type.
func WithFilter(t models.TransactionType) PanelOption {
	return func(p *Panel) { p.opts.Type = t }
}

// Panel loads the transaction list once per lifetime.
type Panel struct {
	store   session.Store
	fetcher TransactionFetcher
	loc     *i18n.Localizer
	logger  *log.Logger
	opts    finance.FetchOptions

	mu           sync.Mutex
	state        PanelState
	transactions []models.Transaction
	err          error
	mounted      bool
	closed       bool
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewPanel returns an unmounted panel.
func NewPanel(store session.Store, fetcher TransactionFetcher, loc *i18n.Localizer, logger *log.Logger, opts ...PanelOption) *Panel {
	p := &Panel{
		store:   store,
		fetcher: fetcher,
		loc:     loc,
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentUI),
		state:   PanelUnmounted,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mount enters Loading and starts the fetch. Only the first call has any
// effect. Without a stored token the panel goes straight to Errored and no
// request is made. The fetch lives until it resolves, ctx is cancelled, or
// Teardown is called.
func (p *Panel) Mount(ctx context.Context) {
	p.mu.Lock()
	if p.mounted || p.closed {
		p.mu.Unlock()
		return
	}
	p.mounted = true
	p.state = PanelLoading
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	token, ok, err := p.store.Get(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "read session", log.FieldError, err)
		p.resolve(nil, apierr.Unknown(i18n.KeyUnknown, p.loc.T(i18n.KeyUnknown), err))
		return
	}
	if !ok {
		p.resolve(nil, apierr.MissingToken(i18n.KeyMissingToken, p.loc.T(i18n.KeyMissingToken)))
		return
	}

	go func() {
		txs, err := p.fetcher.FetchTransactions(ctx, token, p.opts)
		p.resolve(txs, err)
	}()
}

// Teardown cancels an in-flight fetch. A result that arrives later is
// discarded and the panel keeps the state it had.
func (p *Panel) Teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	if p.state == PanelLoading || p.state == PanelUnmounted {
		close(p.done)
	}
}

// Done is closed once the panel resolves or is torn down.
func (p *Panel) Done() <-chan struct{} {
	return p.done
}

// State returns the current panel state.
func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns a copy of the panel state.
func (p *Panel) Snapshot() PanelSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := PanelSnapshot{
		State: p.state,
		Err:   p.err,
	}
	if p.transactions != nil {
		snap.Transactions = append([]models.Transaction{}, p.transactions...)
		snap.Summary = Summarize(p.transactions)
	}
	if p.err != nil {
		snap.ErrorMessage = apierr.Message(p.err)
		snap.ErrorKind = apierr.KindOf(p.err)
	}
	return snap
}

func (p *Panel) resolve(txs []models.Transaction, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Debug("discarding result after teardown")
		return
	}
	if err != nil {
		p.state = PanelErrored
		p.err = err
		p.logger.Warn("transaction panel errored", log.FieldErrorKind, string(apierr.KindOf(err)))
	} else {
		p.state = PanelLoaded
		p.transactions = txs
		p.logger.Debug("transaction panel loaded", log.FieldCount, len(txs))
	}
	// Resolution releases the context; Teardown must not close done twice.
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	close(p.done)
}
