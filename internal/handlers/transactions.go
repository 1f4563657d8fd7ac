package handlers

import (
	"net/http"

	"budgetbuddy/internal/apierr"
	"budgetbuddy/internal/i18n"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/ui"
)

// TransactionItem represents a transaction in the list view.
type TransactionItem struct {
	models.Transaction
	AmountText string
	Icon       string
	IsIncome   bool
}

// TransactionsViewModel is the data passed to the transactions template.
type TransactionsViewModel struct {
	Page
	State        ui.PanelState
	Filter       models.TransactionType
	Items        []TransactionItem
	Income       string
	Expense      string
	Balance      string
	EmptyMessage string
	ErrorTitle   string
	ErrorMessage string
	ErrorKind    apierr.Kind
}

// Transactions mounts a panel for the request, waits for it to resolve and
// renders the result. A client that goes away tears the panel down.
func (h *Handlers) Transactions(w http.ResponseWriter, r *http.Request) {
	filter := models.TransactionType(r.URL.Query().Get("type"))
	var opts []ui.PanelOption
	switch filter {
	case "":
	case models.TransactionIncome, models.TransactionExpense:
		opts = append(opts, ui.WithFilter(filter))
	default:
		http.Error(w, "Invalid transaction type, use 'income' or 'expense'", http.StatusBadRequest)
		return
	}

	panel := h.newPanel(opts...)
	panel.Mount(r.Context())
	defer panel.Teardown()

	select {
	case <-panel.Done():
	case <-r.Context().Done():
		h.logger.Debug("client left before transactions resolved")
		return
	}

	snap := panel.Snapshot()
	if snap.State != ui.PanelLoaded && snap.State != ui.PanelErrored {
		return
	}

	h.render(w, r, http.StatusOK, "transactions.html", h.transactionsView(filter, snap))
}

func (h *Handlers) transactionsView(filter models.TransactionType, snap ui.PanelSnapshot) TransactionsViewModel {
	vm := TransactionsViewModel{
		Page:         h.page(),
		State:        snap.State,
		Filter:       filter,
		EmptyMessage: h.loc.T(i18n.KeyTransactionsEmpty),
	}

	if snap.State == ui.PanelErrored {
		vm.ErrorTitle = h.loc.T(i18n.KeyFetchFailed)
		vm.ErrorMessage = snap.ErrorMessage
		vm.ErrorKind = snap.ErrorKind
		h.logger.Info("transactions page errored", log.FieldErrorKind, string(snap.ErrorKind))
		return vm
	}

	items := make([]TransactionItem, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		isIncome := tx.Type == models.TransactionIncome
		icon := "💸"
		if isIncome {
			icon = "💰"
		}
		items = append(items, TransactionItem{
			Transaction: tx,
			AmountText:  tx.Amount.StringFixed(2),
			Icon:        icon,
			IsIncome:    isIncome,
		})
	}
	vm.Items = items
	vm.Income = snap.Summary.Income.StringFixed(2)
	vm.Expense = snap.Summary.Expense.StringFixed(2)
	vm.Balance = snap.Summary.Balance.StringFixed(2)
	return vm
}
