package ui

import (
	"github.com/shopspring/decimal"

	"budgetbuddy/internal/models"
)

// Summary totals a transaction list.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
	Count   int
}

// Summarize computes totals over txs without changing it.
func Summarize(txs []models.Transaction) Summary {
	s := Summary{Count: len(txs)}
	for _, tx := range txs {
		switch tx.Type {
		case models.TransactionIncome:
			s.Income = s.Income.Add(tx.Amount)
		case models.TransactionExpense:
			s.Expense = s.Expense.Add(tx.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}
