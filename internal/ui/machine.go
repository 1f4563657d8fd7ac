// Package ui holds the observable state that presentation hosts render: the
// auth form machine and the transaction panel.
package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"budgetbuddy/internal/apierr"
	"budgetbuddy/internal/auth"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/models"
)

// AuthState is a state of the auth form.
type AuthState string

const (
	StateIdle          AuthState = "idle"
	StateSubmitting    AuthState = "submitting"
	StateAuthenticated AuthState = "authenticated"
	StateFailed        AuthState = "failed"
)

// ErrSuperseded is returned by Submit when the form was switched before the
// submission resolved. Its result was not applied.
var ErrSuperseded = errors.New("form switched before submission resolved")

// Authenticator submits credential forms. *auth.Controller implements it.
type Authenticator interface {
	SubmitLogin(ctx context.Context, email, password string) (models.Session, error)
	SubmitRegister(ctx context.Context, email, password, name, confirmPassword string) (models.Session, error)
	SuccessMessage(form models.FormType) string
}

// UIState is a snapshot of the auth form.
type UIState struct {
	FormType        models.FormType
	Credentials     models.Credentials
	State           AuthState
	IsLoading       bool
	ErrorMessage    string
	SuccessMessage  string
	IsAuthenticated bool
	// ErrorKind classifies ErrorMessage; empty when there is no error.
	ErrorKind apierr.Kind
}

// Machine is the auth form state machine.
type Machine struct {
	auth   Authenticator
	logger *log.Logger

	mu         sync.Mutex
	state      UIState
	generation uint64
}

// NewMachine returns an Idle machine showing the login form.
func NewMachine(a Authenticator, logger *log.Logger) *Machine {
	return &Machine{
		auth:   a,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentUI),
		state:  UIState{FormType: models.FormLogin, State: StateIdle},
	}
}

// SwitchForm shows form and resets every transient field. A submission still
// in flight for the previous form is discarded when it resolves.
func (m *Machine) SwitchForm(form models.FormType) error {
	if !form.Valid() {
		return fmt.Errorf("unknown form type %q", form)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.state = UIState{FormType: form, State: StateIdle}
	return nil
}

// SetCredentials replaces what the user typed.
func (m *Machine) SetCredentials(c models.Credentials) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Credentials = c
}

// SetEmail updates the email field.
func (m *Machine) SetEmail(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Credentials.Email = v
}

// SetPassword updates the password field.
func (m *Machine) SetPassword(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Credentials.Password = v
}

// SetName updates the name field of the register form.
func (m *Machine) SetName(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Credentials.Name = v
}

// SetConfirmPassword updates the confirmation field of the register form.
func (m *Machine) SetConfirmPassword(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Credentials.ConfirmPassword = v
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() UIState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Submit sends the active form and blocks until it resolves. The machine
// lands in Authenticated or Failed and the returned error mirrors that
// outcome. A second Submit while one is in flight fails with
// auth.ErrSubmissionInFlight and leaves the state untouched.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	if m.state.IsLoading {
		m.mu.Unlock()
		return auth.ErrSubmissionInFlight
	}
	gen := m.generation
	form := m.state.FormType
	creds := m.state.Credentials
	prev := m.state
	m.state.State = StateSubmitting
	m.state.IsLoading = true
	m.state.ErrorMessage = ""
	m.state.SuccessMessage = ""
	m.state.ErrorKind = ""
	m.mu.Unlock()

	var err error
	switch form {
	case models.FormRegister:
		_, err = m.auth.SubmitRegister(ctx, creds.Email, creds.Password, creds.Name, creds.ConfirmPassword)
	default:
		_, err = m.auth.SubmitLogin(ctx, creds.Email, creds.Password)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		m.logger.DebugContext(ctx, "discarding superseded submission", log.FieldForm, string(form))
		return ErrSuperseded
	}

	if errors.Is(err, auth.ErrSubmissionInFlight) {
		// An earlier submission of this form, started before a switch, still holds the flag.
		m.state = prev
		m.state.Credentials = creds
		return err
	}

	m.state.IsLoading = false
	if err != nil {
		m.state.State = StateFailed
		m.state.IsAuthenticated = false
		m.state.ErrorMessage = apierr.Message(err)
		m.state.ErrorKind = apierr.KindOf(err)
		return err
	}

	m.state.State = StateAuthenticated
	m.state.IsAuthenticated = true
	m.state.SuccessMessage = m.auth.SuccessMessage(form)
	return nil
}
