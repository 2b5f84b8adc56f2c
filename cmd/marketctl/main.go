// Command marketctl drives the marketplace API from a terminal: signing in,
// contacting sellers, reviewing requests and managing listings.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/senyabanana/surplus-market/internal/apiclient"
	"github.com/senyabanana/surplus-market/internal/notify"
	"github.com/senyabanana/surplus-market/internal/session"
)

const usage = `usage: marketctl <command> [flags]

commands:
  token      mint a development access token (needs JWT_SECRET)
  login      store an access token
  logout     forget the stored token
  whoami     show the signed-in identity
  contact    contact the seller of a product
  requests   list contact requests (--role received|sent)
  review     approve or reject a received contact request
  company    register, show or update your company
  verify     admin: list or decide pending companies
  products   browse and manage listings

environment:
  MARKET_URL         API base URL (default http://localhost:8080)
  MARKET_TOKEN_FILE  where the token is kept (default ~/.marketctl/token)`

type repeatStringFlag []string

func (r *repeatStringFlag) String() string { return strings.Join(*r, ",") }
func (r *repeatStringFlag) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	*r = append(*r, v)
	return nil
}

// printer shows notices on stderr.
type printer struct{}

func (printer) Notify(n notify.Notice) {
	prefix := "info"
	switch n.Level {
	case notify.LevelSuccess:
		prefix = "ok"
	case notify.LevelWarning:
		prefix = "warning"
	case notify.LevelError:
		prefix = "error"
	}
	line := prefix + ": " + n.Text
	switch n.Remedy {
	case notify.RemedyLogin:
		line += " (run: marketctl login)"
	case notify.RemedyRegister:
		line += " (run: marketctl company register)"
	case notify.RemedyVerification:
		line += " (your company is waiting for verification)"
	}
	fmt.Fprintln(os.Stderr, line)
}

type cli struct {
	session  *session.Session
	client   *apiclient.Client
	notifier notify.Notifier
}

func main() {
	_ = godotenv.Load(".env")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if os.Args[1] == "token" {
		os.Exit(runToken(os.Args[2:]))
	}

	c, err := newCLI()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	args := os.Args[2:]
	var code int
	switch os.Args[1] {
	case "login":
		code = c.runLogin(args)
	case "logout":
		code = c.runLogout()
	case "whoami":
		code = c.runWhoami()
	case "contact":
		code = c.runContact(ctx, args)
	case "requests":
		code = c.runRequests(ctx, args)
	case "review":
		code = c.runReview(ctx, args)
	case "company":
		code = c.runCompany(ctx, args)
	case "verify":
		code = c.runVerify(ctx, args)
	case "products":
		code = c.runProducts(ctx, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		code = 2
	}
	os.Exit(code)
}

func newCLI() (*cli, error) {
	baseURL := envOr("MARKET_URL", "http://localhost:8080")
	tokenFile := os.Getenv("MARKET_TOKEN_FILE")
	if tokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate home directory: %w", err)
		}
		tokenFile = filepath.Join(home, ".marketctl", "token")
	}

	s := session.New(session.FileStore{Path: tokenFile})
	if err := s.Restore(); err != nil {
		return nil, err
	}
	return &cli{
		session:  s,
		client:   apiclient.New(baseURL, s),
		notifier: printer{},
	}, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// fail reports err through the notifier unless it already went there.
func (c *cli) fail(err error, notified bool) int {
	if !notified {
		c.notifier.Notify(notify.FromError(err))
	}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.Kind == apiclient.KindValidation {
		return 2
	}
	return 1
}

func usageError(msg string) int {
	fmt.Fprintln(os.Stderr, "error:", msg)
	return 2
}

func printJSON(v interface{}) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}
