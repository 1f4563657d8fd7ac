// Package fakebackend runs in-process stand-ins for the BudgetBuddy auth and
// finance services. They follow the services' wire contract: bcrypt-hashed
// accounts, HS256 JWT session tokens carrying an email claim, and bearer
// authentication on the finance routes.
package fakebackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Transaction is the finance service's wire form of a transaction.
type Transaction struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	CategoryID  *int64  `json:"category_id,omitempty"`
}

type account struct {
	name         string
	passwordHash []byte
}

// Backend holds the state shared by the fake auth and finance servers.
type Backend struct {
	Auth    *httptest.Server
	Finance *httptest.Server

	secret []byte

	mu           sync.Mutex
	accounts     map[string]account
	transactions map[string][]Transaction
	fetchStatus  int
	fetchBody    string
	authDelay    time.Duration

	loginCalls       atomic.Int64
	registerCalls    atomic.Int64
	transactionCalls atomic.Int64
}

// Start launches both servers on loopback ports.
func Start() *Backend {
	b := New()
	b.Auth = httptest.NewServer(b.AuthHandler())
	b.Finance = httptest.NewServer(b.FinanceHandler())
	return b
}

// New returns a Backend without listening servers.
func New() *Backend {
	return &Backend{
		secret:       []byte("fakebackend-secret"),
		accounts:     map[string]account{},
		transactions: map[string][]Transaction{},
	}
}

// Close stops the servers started by Start.
func (b *Backend) Close() {
	if b.Auth != nil {
		b.Auth.Close()
	}
	if b.Finance != nil {
		b.Finance.Close()
	}
}

// AddUser creates an account.
func (b *Backend) AddUser(email, name, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[email]; exists {
		return fmt.Errorf("user %s already exists", email)
	}
	b.accounts[email] = account{name: name, passwordHash: hash}
	return nil
}

// SetTransactions replaces the transactions of email.
func (b *Backend) SetTransactions(email string, txs []Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transactions[email] = append([]Transaction(nil), txs...)
}

// FailTransactions makes every transactions read answer status with body.
// A zero status restores normal behavior.
func (b *Backend) FailTransactions(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchStatus, b.fetchBody = status, body
}

// DelayAuth makes the auth routes wait before answering.
func (b *Backend) DelayAuth(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authDelay = d
}

// IssueToken returns a session token for email.
func (b *Backend) IssueToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// LoginCalls returns how many requests reached POST /login.
func (b *Backend) LoginCalls() int64 { return b.loginCalls.Load() }

// RegisterCalls returns how many requests reached POST /register.
func (b *Backend) RegisterCalls() int64 { return b.registerCalls.Load() }

// TransactionCalls returns how many requests reached GET /transactions.
func (b *Backend) TransactionCalls() int64 { return b.transactionCalls.Load() }

// AuthHandler serves POST /login and POST /register.
func (b *Backend) AuthHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", b.login)
	mux.HandleFunc("POST /register", b.register)
	return mux
}

// FinanceHandler serves GET /transactions.
func (b *Backend) FinanceHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /transactions", b.listTransactions)
	return mux
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	b.loginCalls.Add(1)
	b.wait()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	acct, ok := b.accounts[req.Email]
	b.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	b.writeToken(w, http.StatusOK, req.Email)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	b.registerCalls.Add(1)
	b.wait()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if err := b.AddUser(req.Email, req.Name, req.Password); err != nil {
		writeMessage(w, http.StatusConflict, "Email already registered")
		return
	}

	b.writeToken(w, http.StatusCreated, req.Email)
}

func (b *Backend) listTransactions(w http.ResponseWriter, r *http.Request) {
	b.transactionCalls.Add(1)

	email, err := b.authenticate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	b.mu.Lock()
	status, body := b.fetchStatus, b.fetchBody
	txs := append([]Transaction(nil), b.transactions[email]...)
	b.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	txType := r.URL.Query().Get("type")
	if txType != "" && txType != "income" && txType != "expense" {
		http.Error(w, "Invalid transaction type, use 'income' or 'expense'", http.StatusBadRequest)
		return
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if txType == "" || tx.Type == txType {
			out = append(out, tx)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (b *Backend) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return "", errors.New("Authorization header must start with 'Bearer '")
	}
	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errors.New("Invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("Invalid token claims")
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", errors.New("Invalid email in token")
	}
	return email, nil
}

func (b *Backend) writeToken(w http.ResponseWriter, status int, email string) {
	token, err := b.IssueToken(email)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (b *Backend) wait() {
	b.mu.Lock()
	d := b.authDelay
	b.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
