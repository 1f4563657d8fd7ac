package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"budgetbuddy/internal/app"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/i18n"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/ui"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

func init() {
	// -json output keeps amounts as JSON numbers, the way the finance service sends them.
	decimal.MarshalJSONWithoutQuotes = true
}

const usage = `Usage: budgetbuddy <command> [flags]

Commands:
  login         sign in and store the session
  register      create an account and store the session
  transactions  list the signed-in user's transactions
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type commonFlags struct {
	dbPath     *string
	authURL    *string
	financeURL *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		dbPath:     fs.String("db", "", "Path to session database (overrides BUDGETBUDDY_SESSION_DB)"),
		authURL:    fs.String("auth-url", "", "Auth service URL (overrides BUDGETBUDDY_AUTH_URL)"),
		financeURL: fs.String("finance-url", "", "Finance service URL (overrides BUDGETBUDDY_FINANCE_URL)"),
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}
	command, rest := args[0], args[1:]

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := addCommonFlags(fs)

	switch command {
	case "login":
		email := fs.String("email", "", "Account email")
		passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *email == "" {
			fmt.Fprintln(stdout, "Usage: budgetbuddy login -email <email> [-password <password>]")
			fs.PrintDefaults()
			return fmt.Errorf("missing required flags: email")
		}
		p := newPrompter(stdin, stdout)
		password, err := p.secret("Password", *passwordFlag)
		if err != nil {
			return err
		}
		return withApp(common, stderr, func(ctx context.Context, a *app.App) error {
			return submit(ctx, a, stdout, models.FormLogin, models.Credentials{Email: *email, Password: password})
		})

	case "register":
		email := fs.String("email", "", "Account email")
		name := fs.String("name", "", "Display name")
		passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
		confirmFlag := fs.String("confirm", "", "Password confirmation (optional, will prompt if omitted)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *email == "" {
			fmt.Fprintln(stdout, "Usage: budgetbuddy register -email <email> [-name <name>] [-password <password>] [-confirm <password>]")
			fs.PrintDefaults()
			return fmt.Errorf("missing required flags: email")
		}
		p := newPrompter(stdin, stdout)
		password, err := p.secret("Password", *passwordFlag)
		if err != nil {
			return err
		}
		confirm, err := p.secret("Confirm password", *confirmFlag)
		if err != nil {
			return err
		}
		return withApp(common, stderr, func(ctx context.Context, a *app.App) error {
			return submit(ctx, a, stdout, models.FormRegister, models.Credentials{
				Email:           *email,
				Password:        password,
				Name:            *name,
				ConfirmPassword: confirm,
			})
		})

	case "transactions":
		txType := fs.String("type", "", "Only list income or expense")
		asJSON := fs.Bool("json", false, "Print the list as JSON")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		filter := models.TransactionType(*txType)
		if filter != "" && filter != models.TransactionIncome && filter != models.TransactionExpense {
			return fmt.Errorf("invalid transaction type %q, use 'income' or 'expense'", *txType)
		}
		return withApp(common, stderr, func(ctx context.Context, a *app.App) error {
			return listTransactions(ctx, a, stdout, filter, *asJSON)
		})

	case "-h", "-help", "--help", "help":
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp

	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func withApp(common commonFlags, stderr io.Writer, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *common.dbPath != "" {
		cfg.SessionDB = *common.dbPath
	}
	if *common.authURL != "" {
		cfg.AuthURL = *common.authURL
	}
	if *common.financeURL != "" {
		cfg.FinanceURL = *common.financeURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(log.Config{Level: cfg.Level(), Component: log.ComponentApp, Output: stderr})
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return fn(ctx, a)
}

func submit(ctx context.Context, a *app.App, stdout io.Writer, form models.FormType, creds models.Credentials) error {
	m := a.NewMachine()
	if err := m.SwitchForm(form); err != nil {
		return err
	}
	m.SetCredentials(creds)
	if err := m.Submit(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, m.Snapshot().SuccessMessage)
	return nil
}

func listTransactions(ctx context.Context, a *app.App, stdout io.Writer, filter models.TransactionType, asJSON bool) error {
	var opts []ui.PanelOption
	if filter != "" {
		opts = append(opts, ui.WithFilter(filter))
	}
	panel := a.NewPanel(opts...)
	panel.Mount(ctx)
	defer panel.Teardown()

	select {
	case <-panel.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	snap := panel.Snapshot()
	if snap.State == ui.PanelErrored {
		return snap.Err
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Transactions)
	}

	if len(snap.Transactions) == 0 {
		fmt.Fprintln(stdout, a.Loc.T(i18n.KeyTransactionsEmpty))
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tDESCRIPTION")
	for _, tx := range snap.Transactions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date, tx.Type, tx.Amount.StringFixed(2), tx.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nIncome: %s  Expense: %s  Balance: %s\n",
		snap.Summary.Income.StringFixed(2), snap.Summary.Expense.StringFixed(2), snap.Summary.Balance.StringFixed(2))
	return nil
}

// prompter reads secrets from a terminal, or line by line from any other reader.
type prompter struct {
	in    io.Reader
	out   io.Writer
	lines *bufio.Scanner
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out}
}

func (p *prompter) secret(label, preset string) (string, error) {
	if preset != "" {
		return preset, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	value, err := p.readPassword()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	fmt.Fprintln(p.out) // Print newline after password input
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.ToLower(label))
	}
	return value, nil
}

func (p *prompter) readPassword() (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes). One scanner is shared
	// so consecutive prompts consume consecutive lines.
	if p.lines == nil {
		p.lines = bufio.NewScanner(p.in)
	}
	if p.lines.Scan() {
		return p.lines.Text(), nil
	}
	if err := p.lines.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
