package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mmynk/receiptsplit/internal/models"
)

// MaxUploadSize mirrors the backend's receipt size limit so oversized files
// fail before they are sent.
const MaxUploadSize = 5 << 20

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListExpenses returns every expense created by or involving the caller, newest first.
func (c *Client) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	var expenses []models.Expense
	if err := c.doJSON(ctx, http.MethodGet, "/expenses/", nil, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// GetExpense fetches a single expense.
func (c *Client) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	var e models.Expense
	if err := c.doJSON(ctx, http.MethodGet, "/expenses/"+escape(id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExpense stores a new expense with the caller as creator.
func (c *Client) CreateExpense(ctx context.Context, req *models.CreateExpenseRequest) (*models.Expense, error) {
	var e models.Expense
	if err := c.doJSON(ctx, http.MethodPost, "/expenses/", req, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateStatus asks the backend to move an expense to status.
func (c *Client) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Expense, error) {
	var e models.Expense
	req := models.StatusUpdate{Status: status}
	if err := c.doJSON(ctx, http.MethodPatch, "/expenses/"+escape(id)+"/status", req, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteExpense removes an expense.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	var resp models.MessageResponse
	return c.doJSON(ctx, http.MethodDelete, "/expenses/"+escape(id), nil, &resp)
}

// SendReminder notifies every participant of an expense that payment is due.
func (c *Client) SendReminder(ctx context.Context, id string) (*models.ReminderResponse, error) {
	var resp models.ReminderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/expenses/"+escape(id)+"/remind", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListFriends returns the friends network, excluding the caller.
func (c *Client) ListFriends(ctx context.Context) ([]models.Friend, error) {
	var friends []models.Friend
	if err := c.doJSON(ctx, http.MethodGet, "/friends/", nil, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// ListNotifications returns the caller's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var notifications []models.Notification
	if err := c.doJSON(ctx, http.MethodGet, "/notifications/", nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationsRead marks all of the caller's notifications as read.
func (c *Client) MarkNotificationsRead(ctx context.Context) error {
	var resp models.MessageResponse
	return c.doJSON(ctx, http.MethodPost, "/notifications/read", nil, &resp)
}

// UploadReceipt sends a receipt image and returns what the backend extracted from it.
func (c *Client) UploadReceipt(ctx context.Context, filename string, r io.Reader) (*models.ReceiptScan, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, &APIError{Err: fmt.Errorf("failed to read receipt: %w", err)}
	}
	if len(data) > MaxUploadSize {
		return nil, &APIError{Detail: "File too large. Maximum size is 5MB."}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", mimetype.Detect(data).String())

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, &APIError{Err: fmt.Errorf("failed to build upload: %w", err)}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &APIError{Err: fmt.Errorf("failed to build upload: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return nil, &APIError{Err: fmt.Errorf("failed to build upload: %w", err)}
	}

	var scan models.ReceiptScan
	if err := c.do(ctx, http.MethodPost, "/receipts/upload", &buf, mw.FormDataContentType(), &scan); err != nil {
		return nil, err
	}
	return &scan, nil
}
