package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"budgetbuddy/internal/apierr"
	"budgetbuddy/internal/auth"
	"budgetbuddy/internal/i18n"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/ui"
)

var views = []string{"auth.html", "transactions.html"}

// PanelFactory creates an unmounted transaction panel.
type PanelFactory func(opts ...ui.PanelOption) *ui.Panel

// Handlers renders the client state as HTML pages.
type Handlers struct {
	machine   *ui.Machine
	newPanel  PanelFactory
	loc       *i18n.Localizer
	logger    *log.Logger
	templates map[string]*template.Template
	static    fs.FS
}

// NewHandlers parses the templates in assets and returns the view host for
// machine. Every transactions page gets a fresh panel from newPanel.
func NewHandlers(machine *ui.Machine, newPanel PanelFactory, loc *i18n.Localizer, logger *log.Logger, assets fs.FS) (*Handlers, error) {
	templates := make(map[string]*template.Template, len(views))
	for _, view := range views {
		tmpl, err := template.ParseFS(assets, "templates/base.html", "templates/"+view)
		if err != nil {
			return nil, err
		}
		templates[view] = tmpl
	}
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}
	return &Handlers{
		machine:   machine,
		newPanel:  newPanel,
		loc:       loc,
		logger:    log.OrDiscard(logger).WithComponent(log.ComponentWeb),
		templates: templates,
		static:    static,
	}, nil
}

// Routes registers every page of the view host.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(h.static)))
	mux.HandleFunc("GET /{$}", h.AuthForm)
	mux.HandleFunc("GET /switch", h.SwitchForm)
	mux.HandleFunc("POST /submit", h.Submit)
	mux.HandleFunc("GET /transactions", h.Transactions)
	return mux
}

// Page carries what the base layout needs.
type Page struct {
	Lang string
}

// AuthViewModel holds data for the auth form page. Passwords are never
// rendered back.
type AuthViewModel struct {
	Page
	Form            models.FormType
	IsRegister      bool
	Email           string
	Name            string
	State           ui.AuthState
	IsLoading       bool
	ErrorMessage    string
	ErrorKind       apierr.Kind
	SuccessMessage  string
	IsAuthenticated bool
}

// AuthForm renders the active form.
func (h *Handlers) AuthForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "auth.html", h.authView())
}

// SwitchForm changes the active form and resets it.
func (h *Handlers) SwitchForm(w http.ResponseWriter, r *http.Request) {
	form := models.FormType(r.URL.Query().Get("form"))
	if err := h.machine.SwitchForm(form); err != nil {
		http.Error(w, "Unknown form", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Submit handles the form submission and renders its outcome.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	form := models.FormType(r.FormValue("form"))
	if !form.Valid() {
		http.Error(w, "Unknown form", http.StatusBadRequest)
		return
	}
	if h.machine.Snapshot().FormType != form {
		_ = h.machine.SwitchForm(form)
	}

	h.machine.SetCredentials(models.Credentials{
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		Name:            strings.TrimSpace(r.FormValue("name")),
		ConfirmPassword: r.FormValue("confirm_password"),
	})

	status := http.StatusOK
	err := h.machine.Submit(r.Context())
	switch {
	case errors.Is(err, auth.ErrSubmissionInFlight):
		status = http.StatusConflict
	case errors.Is(err, ui.ErrSuperseded):
		h.logger.Debug("submission superseded", log.FieldForm, string(form))
	case err != nil:
		h.logger.Info("submission failed", log.FieldForm, string(form), log.FieldErrorKind, string(apierr.KindOf(err)))
	}

	h.render(w, r, status, "auth.html", h.authView())
}

func (h *Handlers) authView() AuthViewModel {
	s := h.machine.Snapshot()
	return AuthViewModel{
		Page:            h.page(),
		Form:            s.FormType,
		IsRegister:      s.FormType == models.FormRegister,
		Email:           s.Credentials.Email,
		Name:            s.Credentials.Name,
		State:           s.State,
		IsLoading:       s.IsLoading,
		ErrorMessage:    s.ErrorMessage,
		ErrorKind:       s.ErrorKind,
		SuccessMessage:  s.SuccessMessage,
		IsAuthenticated: s.IsAuthenticated,
	}
}

func (h *Handlers) page() Page {
	if h.loc == nil {
		return Page{Lang: "en"}
	}
	base, _ := h.loc.Tag().Base()
	return Page{Lang: base.String()}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, viewName string, data any) {
	tmpl, ok := h.templates[viewName]
	if !ok {
		h.logger.Error("unknown view", "view", viewName)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, target, data); err != nil {
		h.logger.Error("template execution", "view", viewName, log.FieldError, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
