// Package auth submits login and registration requests and turns the
// responses into a stored session.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"budgetbuddy/internal/apiclient"
	"budgetbuddy/internal/apierr"
	"budgetbuddy/internal/i18n"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/session"

	"golang.org/x/sync/semaphore"
)

const (
	loginPath    = "/login"
	registerPath = "/register"
)

// ErrSubmissionInFlight is returned when a form is submitted while its
// previous submission has not resolved.
var ErrSubmissionInFlight = errors.New("submission already in progress")

// Controller validates and submits credential forms.
type Controller struct {
	api      *apiclient.Client
	store    session.Store
	loc      *i18n.Localizer
	logger   *log.Logger
	inflight map[models.FormType]*semaphore.Weighted
}

// NewController creates a Controller that talks to the auth service through
// api and persists tokens in store.
func NewController(api *apiclient.Client, store session.Store, loc *i18n.Localizer, logger *log.Logger) *Controller {
	return &Controller{
		api:    api,
		store:  store,
		loc:    loc,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentAuth),
		inflight: map[models.FormType]*semaphore.Weighted{
			models.FormLogin:    semaphore.NewWeighted(1),
			models.FormRegister: semaphore.NewWeighted(1),
		},
	}
}

// SubmitLogin exchanges email and password for a session.
func (c *Controller) SubmitLogin(ctx context.Context, email, password string) (models.Session, error) {
	release, err := c.acquire(models.FormLogin)
	if err != nil {
		return models.Session{}, err
	}
	defer release()

	req := models.LoginRequest{Email: email, Password: password}
	return c.submit(ctx, log.OpLogin, loginPath, req)
}

// SubmitRegister creates an account and returns its session. It fails with a
// validation error, without any request, when the passwords differ.
func (c *Controller) SubmitRegister(ctx context.Context, email, password, name, confirmPassword string) (models.Session, error) {
	release, err := c.acquire(models.FormRegister)
	if err != nil {
		return models.Session{}, err
	}
	defer release()

	if password != confirmPassword {
		return models.Session{}, apierr.Validation(i18n.KeyPasswordMismatch, c.loc.T(i18n.KeyPasswordMismatch))
	}

	req := models.RegisterRequest{Email: email, Password: password, Name: name}
	return c.submit(ctx, log.OpRegister, registerPath, req)
}

// SuccessMessage returns the message shown after a successful submission of form.
func (c *Controller) SuccessMessage(form models.FormType) string {
	if form == models.FormRegister {
		return c.loc.T(i18n.KeyRegisterSuccess)
	}
	return c.loc.T(i18n.KeyLoginSuccess)
}

func (c *Controller) acquire(form models.FormType) (func(), error) {
	sem := c.inflight[form]
	if !sem.TryAcquire(1) {
		c.logger.Debug("submission rejected", log.FieldForm, string(form))
		return nil, ErrSubmissionInFlight
	}
	return func() { sem.Release(1) }, nil
}

func (c *Controller) submit(ctx context.Context, op, path string, body any) (models.Session, error) {
	resp, err := c.api.PostJSON(ctx, path, body)

	var (
		status int
		data   []byte
	)
	if resp != nil {
		status, data = resp.Status, resp.Body
	}
	if classified := apierr.Classify(status, data, err, c.loc); classified != nil {
		c.logger.WarnContext(ctx, "auth request failed",
			log.FieldOperation, op,
			log.FieldErrorKind, string(apierr.KindOf(classified)),
			log.FieldStatusCode, status,
			log.FieldError, err)
		return models.Session{}, classified
	}

	var payload models.TokenResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.Session{}, c.unknown(ctx, op, fmt.Errorf("decode token response: %w", err))
	}
	if strings.TrimSpace(payload.Token) == "" {
		return models.Session{}, c.unknown(ctx, op, errors.New("token response without token"))
	}

	if err := c.store.Set(ctx, payload.Token); err != nil {
		return models.Session{}, c.unknown(ctx, op, fmt.Errorf("store session: %w", err))
	}

	c.logger.InfoContext(ctx, "session established", log.FieldOperation, op)
	return models.Session{Token: payload.Token}, nil
}

func (c *Controller) unknown(ctx context.Context, op string, err error) error {
	c.logger.ErrorContext(ctx, "auth response unusable", log.FieldOperation, op, log.FieldError, err)
	return apierr.Unknown(i18n.KeyUnknown, c.loc.T(i18n.KeyUnknown), err)
}
