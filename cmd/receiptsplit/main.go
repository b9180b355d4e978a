// Command receiptsplit is the terminal client: log in, split expenses with friends,
// scan receipts and move expenses through payment review to settlement.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/mmynk/receiptsplit/internal/client"
	"github.com/mmynk/receiptsplit/internal/config"
	"github.com/mmynk/receiptsplit/internal/session"
	"github.com/mmynk/receiptsplit/pkg/logging"
)

// app is the state shared by every subcommand.
type app struct {
	cfg    *config.Client
	tokens *session.FileTokenStore
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":         {"login -email EMAIL [-password PASSWORD]", cmdLogin},
	"logout":        {"logout", cmdLogout},
	"whoami":        {"whoami", cmdWhoami},
	"list":          {"list [-all]", cmdList},
	"show":          {"show ID", cmdShow},
	"metrics":       {"metrics", cmdMetrics},
	"balances":      {"balances", cmdBalances},
	"friends":       {"friends", cmdFriends},
	"add":           {"add -desc TEXT -total AMOUNT -with FRIEND[,FRIEND...] [-receipt FILE]", cmdAdd},
	"scan":          {"scan FILE", cmdScan},
	"pay":           {"pay ID", cmdPay},
	"settle":        {"settle ID", cmdSettle},
	"remind":        {"remind ID", cmdRemind},
	"delete":        {"delete ID", cmdDelete},
	"notifications": {"notifications [-read]", cmdNotifications},
}

func main() {
	// Quiet by default; LOG_LEVEL opts into request logs.
	if os.Getenv("LOG_LEVEL") != "" {
		logging.Setup()
	} else {
		logging.SetupWithLevel(slog.LevelWarn)
	}

	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
		usage(os.Stdout)
		return
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:    cfg,
		tokens: session.NewFileTokenStore(cfg.TokenFile),
		logger: slog.Default(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	if err := cmd.run(ctx, a, os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: receiptsplit COMMAND [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "environment: RECEIPTSPLIT_API_URL, RECEIPTSPLIT_TOKEN_FILE, RECEIPTSPLIT_TIMEOUT, LOG_LEVEL")
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.APIURL, client.WithTimeout(a.cfg.Timeout), client.WithLogger(a.logger))
}

// session loads the stored login. Missing or expired tokens ask the user to log in.
func (a *app) session() (*session.Session, *client.Client, error) {
	sess, err := a.tokens.Load(timeNow())
	switch {
	case errors.Is(err, session.ErrNoToken):
		return nil, nil, errors.New("not logged in, run: receiptsplit login -email EMAIL")
	case errors.Is(err, session.ErrExpiredToken):
		_ = a.tokens.Clear()
		return nil, nil, err
	case err != nil:
		return nil, nil, err
	}
	return sess, a.client().WithToken(sess.Token), nil
}

// checkAuth drops the stored token when the backend rejected it.
func (a *app) checkAuth(err error) error {
	if client.IsUnauthorized(err) {
		_ = a.tokens.Clear()
		return fmt.Errorf("%w (logged out, please log in again)", err)
	}
	return err
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func oneArg(args []string, what string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("expected exactly one %s", what)
	}
	return strings.TrimSpace(args[0]), nil
}
