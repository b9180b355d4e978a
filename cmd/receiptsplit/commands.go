package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/client"
	"github.com/mmynk/receiptsplit/internal/dashboard"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/session"
)

var timeNow = time.Now

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(models.Cents)
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login", a.stdout)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return errors.New("-email is required")
	}
	if *password == "" {
		a.printf("Password: ")
		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	resp, err := a.client().Login(ctx, *email, *password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	sess, err := session.FromToken(resp.Token)
	if err != nil {
		return err
	}
	if err := a.tokens.Save(resp.Token); err != nil {
		return err
	}
	a.printf("Logged in as %s (%s)\n", sess.DisplayName(), sess.UserID)
	return nil
}

func cmdLogout(_ context.Context, a *app, _ []string) error {
	if err := a.tokens.Clear(); err != nil {
		return err
	}
	a.printf("Logged out\n")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	sess, c, err := a.session()
	if err != nil {
		return err
	}
	user, err := c.Me(ctx)
	if err != nil {
		return a.checkAuth(err)
	}
	a.printf("%s <%s>\n", user.Name, user.Email)
	if !sess.ExpiresAt.IsZero() {
		a.printf("session expires %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// openDashboard loads the session and the current expense list.
func (a *app) openDashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	sess, c, err := a.session()
	if err != nil {
		return nil, err
	}
	d := dashboard.New(c, sess, a.logger)
	if msg := d.Refresh(ctx); !msg.OK() {
		if _, err := c.Me(ctx); client.IsUnauthorized(err) {
			return nil, a.checkAuth(err)
		}
		return nil, errors.New(msg.Text)
	}
	return d, nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list", a.stdout)
	all := fs.Bool("all", false, "include settled expenses")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := a.openDashboard(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDESCRIPTION\tTOTAL\tPER PERSON\tPAID BY\tSTATUS\tACTIONS")
	shown := 0
	for _, c := range d.Cards() {
		if c.Status == models.StatusSettled && !*all {
			continue
		}
		var actions []string
		for _, b := range c.Buttons {
			if b.Enabled {
				actions = append(actions, string(b.Action))
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(c.ID), c.Description, money(c.Total), money(c.PerPerson), c.PaidBy, c.Status, strings.Join(actions, ","))
		shown++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if shown == 0 {
		a.printf("No expenses yet.\n")
	}
	return nil
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	ref, err := oneArg(args, "expense ID")
	if err != nil {
		return err
	}
	d, err := a.openDashboard(ctx)
	if err != nil {
		return err
	}
	id, err := resolveExpenseID(d.Expenses(), ref)
	if err != nil {
		return err
	}
	for _, c := range d.Cards() {
		if c.ID != id {
			continue
		}
		a.printf("%s  %s\n", c.Description, money(c.Total))
		a.printf("id: %s\npaid by: %s\nstatus: %s\ncreated: %s\n", c.ID, c.PaidBy, c.Status, c.CreatedAt.Local().Format(time.RFC1123))
		for _, p := range c.Participants {
			you := ""
			if p.IsYou {
				you = " (you)"
			}
			a.printf("  [%s] %s%s  %s\n", p.Initials, p.Name, you, money(p.Amount))
		}
		for _, item := range c.Items {
			a.printf("  - %s  %s\n", item.Name, money(item.Price))
		}
		for _, extra := range []struct {
			label string
			v     *decimal.Decimal
		}{{"subtotal", c.Subtotal}, {"tax", c.Tax}, {"tip", c.Tip}} {
			if extra.v != nil {
				a.printf("  %s: %s\n", extra.label, money(*extra.v))
			}
		}
		if c.ReceiptURL != "" {
			a.printf("receipt: %s\n", c.ReceiptURL)
		}
	}
	return nil
}

func cmdMetrics(ctx context.Context, a *app, _ []string) error {
	d, err := a.openDashboard(ctx)
	if err != nil {
		return err
	}
	m := d.Metrics()
	a.printf("Open expenses: %d\nOwed to you:   %s\nYou owe:       %s\n", m.TotalExpenses, money(m.OwedToYou), money(m.YouOwe))
	return nil
}

func cmdBalances(ctx context.Context, a *app, _ []string) error {
	d, err := a.openDashboard(ctx)
	if err != nil {
		return err
	}
	balances := d.Balances()
	if len(balances) == 0 {
		a.printf("All settled up.\n")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEMAIL\tOWES YOU\tYOU OWE")
	for _, b := range balances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Name, b.Email, money(b.OwesYou), money(b.YouOwe))
	}
	return tw.Flush()
}

func cmdFriends(ctx context.Context, a *app, _ []string) error {
	sess, c, err := a.session()
	if err != nil {
		return err
	}
	friends, msg := dashboard.New(c, sess, a.logger).Friends(ctx)
	if !msg.OK() {
		return errors.New(msg.Text)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tINITIALS\tNAME\tEMAIL")
	for _, f := range friends {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Initials, f.Name, f.Email)
	}
	return tw.Flush()
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("add", a.stdout)
	desc := fs.String("desc", "", "expense title")
	total := fs.String("total", "", "total amount, e.g. 47.10 (defaults to the scanned total)")
	with := fs.String("with", "", "comma-separated friend IDs or emails")
	receiptFile := fs.String("receipt", "", "receipt image to scan and attach")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := a.openDashboard(ctx)
	if err != nil {
		return err
	}
	friends, msg := d.Friends(ctx)
	if !msg.OK() {
		return errors.New(msg.Text)
	}
	selected, err := pickParticipants(friends, *with)
	if err != nil {
		return err
	}

	draft := dashboard.Draft{Description: *desc, Total: *total, Participants: selected}
	if *receiptFile != "" {
		scan, err := a.scan(ctx, d, *receiptFile)
		if err != nil {
			return err
		}
		if scan.Confidence != models.ConfidenceError {
			draft.Scan = scan
			if strings.TrimSpace(draft.Total) == "" {
				draft.Total = scan.Total.StringFixed(models.Cents)
			}
			if strings.TrimSpace(draft.Description) == "" {
				draft.Description = scan.Merchant
			}
		}
	}

	msg = d.CreateExpense(ctx, draft)
	a.printf("%s\n", msg.Text)
	if !msg.OK() {
		return errors.New("expense not created")
	}
	return nil
}

func cmdScan(ctx context.Context, a *app, args []string) error {
	path, err := oneArg(args, "image file")
	if err != nil {
		return err
	}
	sess, c, err := a.session()
	if err != nil {
		return err
	}
	scan, err := a.scan(ctx, dashboard.New(c, sess, a.logger), path)
	if err != nil {
		return err
	}
	a.printf("merchant: %s\n", scan.Merchant)
	if scan.Date != nil {
		a.printf("date: %s\n", *scan.Date)
	}
	for _, item := range scan.Items {
		a.printf("  - %s  %s\n", item.Name, money(item.Price))
	}
	a.printf("subtotal: %s\ntax: %s\ntip: %s\ntotal: %s\nconfidence: %s\n",
		money(scan.Subtotal), money(scan.Tax), money(scan.Tip), money(scan.Total), scan.Confidence)
	if scan.ReceiptURL != "" {
		a.printf("receipt: %s\n", scan.ReceiptURL)
	}
	return nil
}

// scan uploads path and prints the outcome. A failed extraction is reported but
// still returned so the caller can fall back to manual entry.
func (a *app) scan(ctx context.Context, d *dashboard.Dashboard, path string) (*models.ReceiptScan, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > client.MaxUploadSize {
		return nil, errors.New("File size exceeds 5MB limit.")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scan, msg := d.ScanReceipt(ctx, filepath.Base(path), f)
	a.printf("%s\n", msg.Text)
	if scan == nil {
		return nil, errors.New("receipt upload failed")
	}
	return scan, nil
}

func cmdPay(ctx context.Context, a *app, args []string) error {
	return a.expenseAction(ctx, args, (*dashboard.Dashboard).MarkPaid)
}

func cmdSettle(ctx context.Context, a *app, args []string) error {
	return a.expenseAction(ctx, args, (*dashboard.Dashboard).MarkSettled)
}

func cmdRemind(ctx context.Context, a *app, args []string) error {
	return a.expenseAction(ctx, args, (*dashboard.Dashboard).SendReminder)
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	return a.expenseAction(ctx, args, (*dashboard.Dashboard).Delete)
}

func (a *app) expenseAction(ctx context.Context, args []string, action func(*dashboard.Dashboard, context.Context, string) dashboard.Message) error {
	ref, err := oneArg(args, "expense ID")
	if err != nil {
		return err
	}
	d, err := a.openDashboard(ctx)
	if err != nil {
		return err
	}
	id, err := resolveExpenseID(d.Expenses(), ref)
	if err != nil {
		return err
	}
	msg := action(d, ctx, id)
	if !msg.OK() {
		return errors.New(msg.Text)
	}
	a.printf("%s\n", msg.Text)
	return nil
}

func cmdNotifications(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("notifications", a.stdout)
	markRead := fs.Bool("read", false, "mark all notifications as read after listing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, c, err := a.session()
	if err != nil {
		return err
	}
	notifications, err := c.ListNotifications(ctx)
	if err != nil {
		return a.checkAuth(err)
	}
	if len(notifications) == 0 {
		a.printf("No notifications.\n")
		return nil
	}
	for _, n := range notifications {
		marker := " "
		if n.Unread {
			marker = "*"
		}
		a.printf("%s %s  %s\n", marker, n.CreatedAt.Local().Format("Jan 2 15:04"), describeNotification(n))
	}
	if *markRead {
		if err := c.MarkNotificationsRead(ctx); err != nil {
			return a.checkAuth(err)
		}
	}
	return nil
}

func describeNotification(n models.Notification) string {
	switch n.Type {
	case models.NotificationExpenseAdded:
		return fmt.Sprintf("%s added you to %q, your share is %s", n.From, n.Target, money(n.Amount))
	case models.NotificationPaymentRequested:
		return fmt.Sprintf("%s reminds you to pay %s for %q", n.From, money(n.Amount), n.Target)
	case models.NotificationPaymentReceived:
		return fmt.Sprintf("%s marked %s as paid on %q", n.From, money(n.Amount), n.Target)
	case models.NotificationExpenseSettled:
		return fmt.Sprintf("%s settled %q", n.From, n.Target)
	default:
		return fmt.Sprintf("%s: %s", n.Type, n.Target)
	}
}

// resolveExpenseID accepts a full ID or a unique prefix of one.
func resolveExpenseID(expenses []models.Expense, ref string) (string, error) {
	var matches []string
	for _, e := range expenses {
		if e.ID == ref {
			return e.ID, nil
		}
		if strings.HasPrefix(e.ID, ref) {
			matches = append(matches, e.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no expense matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d expenses, use more of the ID", ref, len(matches))
	}
}

// pickParticipants selects friends by ID or email, keeping the order given.
func pickParticipants(friends []models.Friend, list string) ([]calculator.Selection, error) {
	var selected []calculator.Selection
	seen := map[string]bool{}
	for _, ref := range strings.Split(list, ",") {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		found := false
		for _, f := range friends {
			if f.ID == ref || strings.EqualFold(f.Email, ref) {
				if !seen[f.ID] {
					selected = append(selected, calculator.SelectionFromFriend(f))
					seen[f.ID] = true
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no friend matches %q, run: receiptsplit friends", ref)
		}
	}
	return selected, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
