package api

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/client"
	"github.com/mmynk/receiptsplit/internal/dashboard"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/receipt"
	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/internal/session"
	"github.com/mmynk/receiptsplit/internal/storage/sqlstore"
	"github.com/mmynk/receiptsplit/internal/telemetry"
)

type stubOCR struct{}

func (stubOCR) ExtractText(context.Context, []byte) (string, error) {
	return "Noodle Bar\n2025-03-14\nRamen 18.00\nGyoza 7.00\nTax 2.00\nTotal 27.00", nil
}

type testServer struct {
	*httptest.Server
	receiptsDir string
}

// setupTestServer runs the full API against a temp-file SQLite database with
// three seeded users who are each other's friends.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	store, err := sqlstore.NewSQLite(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := telemetry.New()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger)
	err = authSvc.Seed(context.Background(), []service.SeedUser{
		{Email: "alice@example.com", Name: "Alice Chen", Password: "alice-password"},
		{Email: "bob@example.com", Name: "Bob Lin", Password: "bob-password"},
		{Email: "carol@example.com", Name: "Carol (CJ) Jones", Password: "carol-password"},
	})
	if err != nil {
		t.Fatalf("failed to seed users: %v", err)
	}

	friends, err := service.NewFriendService([]service.FriendEntry{
		{Name: "Alice Chen", Email: "alice@example.com"},
		{Name: "Bob Lin", Email: "bob@example.com"},
		{Name: "Carol (CJ) Jones", Email: "carol@example.com"},
	})
	if err != nil {
		t.Fatalf("failed to build friends: %v", err)
	}

	receiptsDir := filepath.Join(dir, "files")
	images, err := receipt.NewFileStore(receiptsDir, "")
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}

	notifications := service.NewNotificationService(store, metrics, logger)
	handler := NewRouter(Deps{
		Auth:          authSvc,
		Expenses:      service.NewExpenseService(store, notifications, metrics, logger),
		Friends:       friends,
		Receipts:      service.NewReceiptService(stubOCR{}, images, metrics, logger),
		Notifications: notifications,
		JWT:           jwtManager,
		Store:         store,
		Metrics:       metrics,
		Logger:        logger,
		CORSOrigins:   "http://localhost:5173",
		ReceiptsDir:   receiptsDir,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, receiptsDir: receiptsDir}
}

// login returns an authenticated client and its session.
func (s *testServer) login(t *testing.T, email, password string) (*client.Client, *session.Session) {
	t.Helper()
	c := client.New(s.URL)
	resp, err := c.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("Login(%s) error: %v", email, err)
	}
	sess, err := session.FromToken(resp.Token)
	if err != nil {
		t.Fatalf("session.FromToken() error: %v", err)
	}
	return c.WithToken(resp.Token), sess
}

func (s *testServer) dashboard(t *testing.T, email, password string) *dashboard.Dashboard {
	t.Helper()
	c, sess := s.login(t, email, password)
	d := dashboard.New(c, sess, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if msg := d.Refresh(context.Background()); !msg.OK() {
		t.Fatalf("Refresh() = %+v", msg)
	}
	return d
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLoginAndMe(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	c, sess := srv.login(t, "Alice@Example.com", "alice-password")
	if sess.UserID != "alice@example.com" || sess.Name != "Alice Chen" {
		t.Errorf("session = %+v", sess)
	}
	me, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if me.Email != "alice@example.com" || me.Name != "Alice Chen" {
		t.Errorf("me = %+v", me)
	}

	_, err = client.New(srv.URL).Login(ctx, "alice@example.com", "wrong-password")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Detail != "Invalid credentials" {
		t.Errorf("wrong password error = %#v", err)
	}

	_, err = client.New(srv.URL).ListExpenses(ctx)
	if !client.IsUnauthorized(err) {
		t.Errorf("anonymous list error = %v, want 401", err)
	}
}

// TestSplitFlow drives the whole lifecycle through the dashboard: create, list on
// both sides, mark paid, settle, and metrics after each refetch.
func TestSplitFlow(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	alice := srv.dashboard(t, "alice@example.com", "alice-password")
	bob := srv.dashboard(t, "bob@example.com", "bob-password")

	friends, msg := alice.Friends(ctx)
	if !msg.OK() || len(friends) != 2 {
		t.Fatalf("Friends() = %+v, %+v", friends, msg)
	}
	var selected []calculator.Selection
	for _, f := range friends {
		selected = append(selected, calculator.SelectionFromFriend(f))
	}

	msg = alice.CreateExpense(ctx, dashboard.Draft{
		Description:  "Dinner",
		Total:        "75.00",
		Participants: selected,
	})
	if !msg.OK() || !strings.HasPrefix(msg.Text, "Expense created successfully! ID: ") {
		t.Fatalf("CreateExpense() = %+v", msg)
	}

	expenses := alice.Expenses()
	if len(expenses) != 1 {
		t.Fatalf("alice expenses = %+v", expenses)
	}
	e := expenses[0]
	if !e.TotalAmount.Equal(d("75")) || len(e.Participants) != 2 || !e.Participants[0].Amount.Equal(d("25")) {
		t.Errorf("expense = %+v", e)
	}
	if m := alice.Metrics(); m.TotalExpenses != 1 || !m.OwedToYou.Equal(d("50")) || !m.YouOwe.IsZero() {
		t.Errorf("alice metrics = %+v", m)
	}

	if msg := bob.Refresh(ctx); !msg.OK() {
		t.Fatalf("bob Refresh() = %+v", msg)
	}
	if m := bob.Metrics(); m.TotalExpenses != 1 || !m.YouOwe.Equal(d("25")) || !m.OwedToYou.IsZero() {
		t.Errorf("bob metrics = %+v", m)
	}
	cards := bob.Cards()
	if len(cards) != 1 || cards[0].PaidBy != "Alice Chen" {
		t.Fatalf("bob cards = %+v", cards)
	}

	// The creator cannot claim payment and a participant cannot settle.
	if msg := alice.MarkPaid(ctx, e.ID); msg.OK() {
		t.Errorf("creator MarkPaid() = %+v", msg)
	}
	if msg := bob.MarkSettled(ctx, e.ID); msg.OK() {
		t.Errorf("participant MarkSettled() = %+v", msg)
	}

	if msg := bob.MarkPaid(ctx, e.ID); !msg.OK() {
		t.Fatalf("bob MarkPaid() = %+v", msg)
	}
	if got := bob.Expenses(); got[0].Status != models.StatusPendingReview {
		t.Errorf("status after MarkPaid = %s", got[0].Status)
	}

	if msg := alice.SendReminder(ctx, e.ID); !msg.OK() || msg.Text != "Reminder sent to 2 participants" {
		t.Errorf("SendReminder() = %+v", msg)
	}

	alice.Refresh(ctx)
	if msg := alice.MarkSettled(ctx, e.ID); !msg.OK() {
		t.Fatalf("alice MarkSettled() = %+v", msg)
	}
	if m := alice.Metrics(); m.TotalExpenses != 0 || !m.OwedToYou.IsZero() {
		t.Errorf("metrics after settle = %+v", m)
	}
	if msg := alice.MarkSettled(ctx, e.ID); msg.Kind != dashboard.KindInfo {
		t.Errorf("second MarkSettled() = %+v", msg)
	}

	c, _ := srv.login(t, "bob@example.com", "bob-password")
	notes, err := c.ListNotifications(ctx)
	if err != nil {
		t.Fatalf("ListNotifications() error: %v", err)
	}
	kinds := map[models.NotificationType]bool{}
	for _, n := range notes {
		kinds[n.Type] = true
	}
	for _, want := range []models.NotificationType{models.NotificationExpenseAdded, models.NotificationPaymentRequested, models.NotificationExpenseSettled} {
		if !kinds[want] {
			t.Errorf("bob missing %s notification: %+v", want, notes)
		}
	}
	if err := c.MarkNotificationsRead(ctx); err != nil {
		t.Errorf("MarkNotificationsRead() error: %v", err)
	}
}

func TestExpenseErrors(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	alice, _ := srv.login(t, "alice@example.com", "alice-password")
	carol, _ := srv.login(t, "carol@example.com", "carol-password")

	created, err := alice.CreateExpense(ctx, &models.CreateExpenseRequest{
		Description:  "Taxi",
		TotalAmount:  d("30"),
		Participants: []models.Participant{{Email: "bob@example.com", Name: "Bob Lin", Amount: d("15")}},
	})
	if err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}

	tests := []struct {
		name       string
		call       func() error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "outsider view",
			call:       func() error { _, err := carol.GetExpense(ctx, created.ID); return err },
			wantStatus: http.StatusForbidden,
			wantDetail: "Not authorized to view this expense",
		},
		{
			name:       "missing expense",
			call:       func() error { _, err := alice.GetExpense(ctx, "nope"); return err },
			wantStatus: http.StatusNotFound,
			wantDetail: "Expense not found",
		},
		{
			name:       "invalid status",
			call:       func() error { _, err := alice.UpdateStatus(ctx, created.ID, "paid"); return err },
			wantStatus: http.StatusBadRequest,
			wantDetail: "Invalid status. Must be one of: pending, pending_review, settled",
		},
		{
			name:       "outsider settle",
			call:       func() error { _, err := carol.UpdateStatus(ctx, created.ID, models.StatusSettled); return err },
			wantStatus: http.StatusForbidden,
			wantDetail: "Only the creator can mark expense as settled",
		},
		{
			name: "empty description",
			call: func() error {
				_, err := alice.CreateExpense(ctx, &models.CreateExpenseRequest{
					TotalAmount:  d("10"),
					Participants: []models.Participant{{Email: "bob@example.com", Name: "Bob", Amount: d("5")}},
				})
				return err
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "description is required",
		},
		{
			name:       "outsider delete",
			call:       func() error { return carol.DeleteExpense(ctx, created.ID) },
			wantStatus: http.StatusForbidden,
			wantDetail: "Not authorized to delete this expense",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var apiErr *client.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want APIError", err)
			}
			if apiErr.StatusCode != tt.wantStatus || apiErr.Detail != tt.wantDetail {
				t.Errorf("got %d %q, want %d %q", apiErr.StatusCode, apiErr.Detail, tt.wantStatus, tt.wantDetail)
			}
		})
	}

	// Trailing-slash and bare collection paths both resolve.
	for _, path := range []string{"/api/expenses", "/api/expenses/"} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s error: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, resp.StatusCode)
		}
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestReceiptUpload(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()
	alice := srv.dashboard(t, "alice@example.com", "alice-password")

	scan, msg := alice.ScanReceipt(ctx, "dinner.png", bytes.NewReader(testPNG(t)))
	if !msg.OK() {
		t.Fatalf("ScanReceipt() = %+v", msg)
	}
	if scan.Merchant != "Noodle Bar" || !scan.Total.Equal(d("27")) || len(scan.Items) != 2 || scan.Confidence != models.ConfidenceHigh {
		t.Errorf("scan = %+v", scan)
	}
	if scan.Date == nil || *scan.Date != "2025-03-14" {
		t.Errorf("date = %v", scan.Date)
	}
	if !strings.HasPrefix(scan.ReceiptURL, "/receipts/alice@example.com/") {
		t.Fatalf("ReceiptURL = %q", scan.ReceiptURL)
	}

	resp, err := http.Get(srv.URL + scan.ReceiptURL)
	if err != nil {
		t.Fatalf("GET receipt error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET receipt = %d", resp.StatusCode)
	}

	friends, _ := alice.Friends(ctx)
	msg = alice.CreateExpense(ctx, dashboard.Draft{
		Description:  "Noodle Bar",
		Total:        scan.Total.String(),
		Participants: []calculator.Selection{calculator.SelectionFromFriend(friends[0])},
		Scan:         scan,
	})
	if !msg.OK() {
		t.Fatalf("CreateExpense() = %+v", msg)
	}
	e := alice.Expenses()[0]
	if e.ReceiptURL == nil || *e.ReceiptURL != scan.ReceiptURL || len(e.Items) != 2 || e.Tax == nil || !e.Tax.Equal(d("2")) {
		t.Errorf("expense receipt details = %+v", e)
	}

	c, _ := srv.login(t, "alice@example.com", "alice-password")
	_, err = c.UploadReceipt(ctx, "notes.txt", strings.NewReader("just some text"))
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("text upload error = %v", err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `receiptsplit_http_requests_total{code="200",method="GET",route="/health"} 1`) {
		t.Errorf("metrics exposition missing health request:\n%s", body)
	}

	resp, err = http.Get(srv.URL + "/api/nope")
	if err != nil {
		t.Fatalf("GET /api/nope error: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(string(body), `"detail"`) {
		t.Errorf("not found = %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/receipts/")
	if err != nil {
		t.Fatalf("GET /receipts/ error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("directory listing = %d, want 404", resp.StatusCode)
	}
}
