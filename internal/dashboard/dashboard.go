// Package dashboard is the client-side controller behind every user action.
//
// A Dashboard owns one Session and one ledger. Every action returns a Message
// for the user; errors never escape. Successful mutations are followed by a full
// refetch, and metrics are only ever derived from fetched data.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/client"
	"github.com/mmynk/receiptsplit/internal/ledger"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/session"
	"github.com/mmynk/receiptsplit/internal/validation"
	"github.com/mmynk/receiptsplit/internal/workflow"
)

// API is the subset of the backend the dashboard uses. *client.Client implements it.
type API interface {
	ListExpenses(ctx context.Context) ([]models.Expense, error)
	CreateExpense(ctx context.Context, req *models.CreateExpenseRequest) (*models.Expense, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	SendReminder(ctx context.Context, id string) (*models.ReminderResponse, error)
	ListFriends(ctx context.Context) ([]models.Friend, error)
	UploadReceipt(ctx context.Context, filename string, r io.Reader) (*models.ReceiptScan, error)
}

var _ API = (*client.Client)(nil)

// Kind classifies a Message.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Message is the user-facing outcome of an action.
type Message struct {
	Kind Kind
	Text string
}

func (m Message) OK() bool {
	return m.Kind != KindError
}

func success(format string, args ...any) Message {
	return Message{Kind: KindSuccess, Text: fmt.Sprintf(format, args...)}
}

func info(format string, args ...any) Message {
	return Message{Kind: KindInfo, Text: fmt.Sprintf(format, args...)}
}

func failure(text string) Message {
	return Message{Kind: KindError, Text: text}
}

// apiFailure prefixes the backend's explanation, or the fallback when there is none.
func apiFailure(prefix string, err error, fallback string) Message {
	detail := client.Message(err, fallback)
	if prefix == "" {
		return failure(detail)
	}
	return failure(prefix + ": " + detail)
}

var errBusy = failure("Another action is still in progress")

// Draft validation errors. Their text is shown to the user as is.
var (
	ErrMissingDescription = errors.New("Please enter an expense title")
	ErrInvalidAmount      = errors.New("Please enter a valid amount")
	ErrNoParticipants     = errors.New("Please select at least one participant")
)

// Dashboard is the controller for one logged-in user.
type Dashboard struct {
	api     API
	session *session.Session
	ledger  *ledger.Ledger
	logger  *slog.Logger

	// busy serializes mutating actions; a second action while one is running is rejected.
	busy sync.Mutex

	friends []models.Friend
}

// New creates a dashboard. sess is the identity every role check uses.
func New(api API, sess *session.Session, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		api:     api,
		session: sess,
		ledger:  ledger.New(),
		logger:  logger.With("user", sess.UserID),
	}
}

// Session returns the identity the dashboard acts for.
func (d *Dashboard) Session() *session.Session {
	return d.session
}

// Refresh refetches the full expense list and replaces the authoritative state.
func (d *Dashboard) Refresh(ctx context.Context) Message {
	expenses, err := d.api.ListExpenses(ctx)
	if err != nil {
		d.logger.Warn("failed to fetch expenses", "error", err)
		return apiFailure("", err, "Failed to load expenses")
	}
	d.ledger.Apply(ledger.Fetched{Expenses: expenses})
	return info("Loaded %d expenses", len(expenses))
}

// Expenses returns the display view of the expense list.
func (d *Dashboard) Expenses() []models.Expense {
	return d.ledger.Expenses()
}

// Metrics derives the metrics from the last full fetch.
func (d *Dashboard) Metrics() calculator.Metrics {
	return calculator.ComputeMetrics(d.ledger.Authoritative(), d.session.UserID)
}

// Balances derives per-person balances from the last full fetch.
func (d *Dashboard) Balances() []calculator.CounterpartyBalance {
	return calculator.ComputeBalances(d.ledger.Authoritative(), d.session.UserID)
}

// Friends loads the friends list once and caches it for the dashboard's lifetime.
func (d *Dashboard) Friends(ctx context.Context) ([]models.Friend, Message) {
	if d.friends != nil {
		return d.friends, info("%d friends", len(d.friends))
	}
	friends, err := d.api.ListFriends(ctx)
	if err != nil {
		d.logger.Warn("failed to fetch friends", "error", err)
		return nil, apiFailure("", err, "Failed to load friends list")
	}
	if friends == nil {
		friends = []models.Friend{}
	}
	d.friends = friends
	return friends, info("%d friends", len(friends))
}

// Draft is an expense as entered by the user, before validation.
type Draft struct {
	Description string

	// Total is the amount as typed, e.g. "47.10".
	Total string

	Participants []calculator.Selection

	// Scan optionally attaches an uploaded receipt's breakdown.
	Scan *models.ReceiptScan
}

// BuildRequest validates the draft and computes the participant shares.
// It never touches the network.
func BuildRequest(draft Draft) (*models.CreateExpenseRequest, error) {
	description := strings.TrimSpace(draft.Description)
	if description == "" {
		return nil, ErrMissingDescription
	}

	total, err := decimal.NewFromString(strings.TrimSpace(draft.Total))
	if err != nil || !total.IsPositive() {
		return nil, ErrInvalidAmount
	}
	total = models.RoundCents(total)

	if len(draft.Participants) == 0 {
		return nil, ErrNoParticipants
	}

	participants, err := calculator.BuildShares(total, draft.Participants)
	if err != nil {
		return nil, err
	}

	req := &models.CreateExpenseRequest{
		Description:  description,
		TotalAmount:  total,
		Participants: participants,
	}
	if s := draft.Scan; s != nil && s.Confidence != models.ConfidenceError {
		if s.ReceiptURL != "" {
			url := s.ReceiptURL
			req.ReceiptURL = &url
		}
		req.Items = s.Items
		tax, tip, subtotal := s.Tax, s.Tip, s.Subtotal
		req.Tax, req.Tip, req.Subtotal = &tax, &tip, &subtotal
	}

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}

// CreateExpense validates draft locally, creates the expense and refetches.
func (d *Dashboard) CreateExpense(ctx context.Context, draft Draft) Message {
	req, err := BuildRequest(draft)
	if err != nil {
		return failure(err.Error())
	}

	if !d.busy.TryLock() {
		return errBusy
	}
	defer d.busy.Unlock()

	created, err := d.api.CreateExpense(ctx, req)
	if err != nil {
		d.logger.Warn("failed to create expense", "error", err)
		return apiFailure("", err, "Failed to create expense")
	}
	d.logger.Info("expense created", "expense_id", created.ID, "participants", len(created.Participants))

	d.refetchAfterMutation(ctx)
	return success("Expense created successfully! ID: %s...", shortID(created.ID))
}

// MarkPaid claims payment of the session user's share.
func (d *Dashboard) MarkPaid(ctx context.Context, id string) Message {
	return d.transition(ctx, id, workflow.ActionMarkPaid, "Failed to mark as paid",
		"Marked as paid. The creator will be notified.")
}

// MarkSettled confirms every payment on an expense the session user created.
// An already settled expense is left alone without contacting the backend.
func (d *Dashboard) MarkSettled(ctx context.Context, id string) Message {
	if e, ok := d.ledger.Get(id); ok && e.Status == models.StatusSettled && workflow.RoleOf(&e, d.session.UserID) == workflow.RoleCreator {
		return info("Expense is already settled")
	}
	return d.transition(ctx, id, workflow.ActionMarkSettled, "Failed to mark as settled",
		"Expense marked as settled.")
}

func (d *Dashboard) transition(ctx context.Context, id string, action workflow.Action, failPrefix, done string) Message {
	e, ok := d.ledger.Get(id)
	if !ok {
		return failure(failPrefix + ": expense not found")
	}
	if err := workflow.Check(&e, d.session.UserID, action); err != nil {
		return failure(failPrefix + ": " + err.Error())
	}
	target, _ := workflow.Target(action)

	if !d.busy.TryLock() {
		return errBusy
	}
	defer d.busy.Unlock()

	if _, err := d.api.UpdateStatus(ctx, id, target); err != nil {
		d.logger.Warn("failed to update status", "expense_id", id, "status", target, "error", err)
		return apiFailure(failPrefix, err, "Something went wrong")
	}
	d.ledger.Apply(ledger.StatusPatched{ID: id, Status: target})
	d.logger.Info("status updated", "expense_id", id, "status", target)

	d.refetchAfterMutation(ctx)
	return success("%s", done)
}

// SendReminder asks the backend to remind every participant to pay.
func (d *Dashboard) SendReminder(ctx context.Context, id string) Message {
	e, ok := d.ledger.Get(id)
	if !ok {
		return failure("Failed to send reminder: expense not found")
	}
	if err := workflow.Check(&e, d.session.UserID, workflow.ActionSendReminder); err != nil {
		return failure("Failed to send reminder: " + err.Error())
	}

	if !d.busy.TryLock() {
		return errBusy
	}
	defer d.busy.Unlock()

	resp, err := d.api.SendReminder(ctx, id)
	if err != nil {
		d.logger.Warn("failed to send reminder", "expense_id", id, "error", err)
		return apiFailure("Failed to send reminder", err, "Something went wrong")
	}
	return success("Reminder sent to %d %s", resp.Notified, plural(resp.Notified, "participant", "participants"))
}

// Delete removes an expense and refetches.
func (d *Dashboard) Delete(ctx context.Context, id string) Message {
	if !d.busy.TryLock() {
		return errBusy
	}
	defer d.busy.Unlock()

	if err := d.api.DeleteExpense(ctx, id); err != nil {
		d.logger.Warn("failed to delete expense", "expense_id", id, "error", err)
		return apiFailure("Failed to delete expense", err, "Something went wrong")
	}
	d.ledger.Apply(ledger.Deleted{ID: id})
	d.logger.Info("expense deleted", "expense_id", id)

	d.refetchAfterMutation(ctx)
	return success("Expense deleted")
}

// ScanReceipt uploads a receipt image. A scan that failed extraction is still
// returned so its (empty) fields can seed manual entry.
func (d *Dashboard) ScanReceipt(ctx context.Context, filename string, r io.Reader) (*models.ReceiptScan, Message) {
	if !d.busy.TryLock() {
		return nil, errBusy
	}
	defer d.busy.Unlock()

	scan, err := d.api.UploadReceipt(ctx, filename, r)
	if err != nil {
		d.logger.Warn("failed to upload receipt", "file", filename, "error", err)
		return nil, apiFailure("Failed to process receipt", err, "Failed to process receipt")
	}
	if scan.Confidence == models.ConfidenceError {
		return scan, failure("Could not read the receipt, enter the details manually: " + scan.Error)
	}
	return scan, success("Receipt processed: %s, total %s", orUnknown(scan.Merchant), scan.Total.StringFixed(models.Cents))
}

// refetchAfterMutation reloads the authoritative list. On failure the local
// patch stays in the overlay until the next successful fetch.
func (d *Dashboard) refetchAfterMutation(ctx context.Context) {
	if msg := d.Refresh(ctx); !msg.OK() {
		d.logger.Warn("refetch after mutation failed; metrics are stale", "reason", msg.Text)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown merchant"
	}
	return s
}
