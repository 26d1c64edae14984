// Package admin implements the authctl operator commands.
package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/dtroode/authlib-server/internal/model"
)

// ErrUsage is returned for unknown commands and bad flags.
var ErrUsage = errors.New("usage error")

const usage = `usage: authctl <command> [flags]

commands:
  register   -email ADDR [-given NAME] [-family NAME]   create an account (password from terminal)
  activate   -id N                                      allow the account to log in
  deactivate -id N                                      block logins for the account
  verify     -id N                                      mark the email as verified
  show       -id N | -email ADDR                        print the account
  prune                                                 delete expired revocations now
  hash                                                  print a credential digest for a password
`

// readPassword is a test seam for term.ReadPassword.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// Registrar creates accounts through the regular registration path.
type Registrar interface {
	Register(ctx context.Context, email, password string, profile model.Profile) (model.Session, error)
}

// Accounts is the account manager surface the tool needs.
type Accounts interface {
	FindByID(ctx context.Context, id int64) (model.Account, error)
	FindByEmail(ctx context.Context, email string) (model.Account, error)
	Activate(ctx context.Context, id int64) (model.Account, error)
	Deactivate(ctx context.Context, id int64) (model.Account, error)
	MarkVerified(ctx context.Context, id int64) (model.Account, error)
}

// Pruner removes expired ledger records on demand.
type Pruner interface {
	RunOnce(ctx context.Context) (int, error)
}

type Tool struct {
	registrar Registrar
	accounts  Accounts
	hasher    model.CredentialHasher
	pruner    Pruner
	out       io.Writer
}

func New(registrar Registrar, accounts Accounts, hasher model.CredentialHasher, pruner Pruner, out io.Writer) *Tool {
	return &Tool{
		registrar: registrar,
		accounts:  accounts,
		hasher:    hasher,
		pruner:    pruner,
		out:       out,
	}
}

// Run executes one command. args excludes the program name.
func (t *Tool) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(t.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return t.register(ctx, rest)
	case "activate":
		return t.transition(ctx, cmd, rest, t.accounts.Activate)
	case "deactivate":
		return t.transition(ctx, cmd, rest, t.accounts.Deactivate)
	case "verify":
		return t.transition(ctx, cmd, rest, t.accounts.MarkVerified)
	case "show":
		return t.show(ctx, rest)
	case "prune":
		return t.prune(ctx)
	case "hash":
		return t.hash(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(t.out, usage)
		return nil
	default:
		fmt.Fprint(t.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (t *Tool) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(t.out)
	return fs
}

func (t *Tool) register(ctx context.Context, args []string) error {
	fs := t.flags("register")
	email := fs.String("email", "", "account email")
	given := fs.String("given", "", "given name")
	family := fs.String("family", "", "family name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *email == "" {
		return fmt.Errorf("%w: -email is required", ErrUsage)
	}

	password, err := t.promptPassword()
	if err != nil {
		return err
	}

	session, err := t.registrar.Register(ctx, *email, password, model.Profile{GivenName: *given, FamilyName: *family})
	if err != nil {
		return err
	}
	return t.print(session.Account)
}

func (t *Tool) transition(ctx context.Context, name string, args []string, apply func(context.Context, int64) (model.Account, error)) error {
	fs := t.flags(name)
	id := fs.Int64("id", 0, "account id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *id <= 0 {
		return fmt.Errorf("%w: -id is required", ErrUsage)
	}

	account, err := apply(ctx, *id)
	if err != nil {
		return err
	}
	return t.print(account.View())
}

func (t *Tool) show(ctx context.Context, args []string) error {
	fs := t.flags("show")
	id := fs.Int64("id", 0, "account id")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var (
		account model.Account
		err     error
	)
	switch {
	case *id > 0:
		account, err = t.accounts.FindByID(ctx, *id)
	case *email != "":
		account, err = t.accounts.FindByEmail(ctx, *email)
	default:
		return fmt.Errorf("%w: -id or -email is required", ErrUsage)
	}
	if err != nil {
		return err
	}
	return t.print(account.View())
}

func (t *Tool) prune(ctx context.Context) error {
	n, err := t.pruner.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "pruned %d revocation records\n", n)
	return nil
}

func (t *Tool) hash(ctx context.Context) error {
	password, err := t.promptPassword()
	if err != nil {
		return err
	}
	digest, err := t.hasher.Hash(ctx, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(t.out, digest)
	return nil
}

func (t *Tool) promptPassword() (string, error) {
	fmt.Fprint(t.out, "Enter password: ")
	pw, err := readPassword()
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(string(pw), "\r\n"), nil
}

func (t *Tool) print(v any) error {
	enc := json.NewEncoder(t.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
