package models

import "github.com/shopspring/decimal"

// FormType selects which credential form is active.
type FormType string

const (
	FormLogin    FormType = "login"
	FormRegister FormType = "register"
)

// Valid reports whether f is one of the known form types.
func (f FormType) Valid() bool {
	return f == FormLogin || f == FormRegister
}

// Credentials holds what the user typed into the active form.
// Name and ConfirmPassword are only used by the register form.
type Credentials struct {
	Email           string
	Password        string
	Name            string
	ConfirmPassword string
}

// Session represents an authenticated session.
type Session struct {
	Token string `json:"token"`
}

// TransactionType distinguishes incoming and outgoing money.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction represents a financial transaction owned by the finance service.
type Transaction struct {
	ID            int64           `json:"id"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Date          string          `json:"date"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	SubcategoryID *int64          `json:"subcategory_id,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	Note          string          `json:"note,omitempty"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// TokenResponse is the success body of both auth calls.
type TokenResponse struct {
	Token string `json:"token"`
}
