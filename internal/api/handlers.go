package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/receipt"
	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/pkg/response"
)

type authHandler struct {
	svc         *service.AuthService
	requireAuth func(http.Handler) http.Handler
}

// Routes returns the router for /api/auth.
func (h *authHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.With(h.requireAuth).Get("/me", h.Me)
	return r
}

// Login handles POST /api/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.svc.Login(r.Context(), &req)
	if err != nil {
		writeError(w, nil, err, "Login failed")
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), callerFrom(r))
	if err != nil {
		writeError(w, nil, err, "Failed to load user")
		return
	}
	response.JSON(w, http.StatusOK, user)
}

type expenseHandler struct {
	svc    *service.ExpenseService
	logger *slog.Logger
}

// Routes returns the router for /api/expenses.
func (h *expenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/remind", h.Remind)
	return r
}

// List handles GET /api/expenses/.
func (h *expenseHandler) List(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.svc.List(r.Context(), callerFrom(r))
	if err != nil {
		writeError(w, h.logger, err, "Failed to load expenses")
		return
	}
	response.JSON(w, http.StatusOK, expenses)
}

// Create handles POST /api/expenses/.
func (h *expenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	expense, err := h.svc.Create(r.Context(), callerFrom(r), &req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to create expense")
		return
	}
	response.JSON(w, http.StatusCreated, expense)
}

// Get handles GET /api/expenses/{id}.
func (h *expenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	expense, err := h.svc.Get(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to load expense")
		return
	}
	response.JSON(w, http.StatusOK, expense)
}

// UpdateStatus handles PATCH /api/expenses/{id}/status.
func (h *expenseHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	expense, err := h.svc.UpdateStatus(r.Context(), callerFrom(r), chi.URLParam(r, "id"), string(req.Status))
	if err != nil {
		writeError(w, h.logger, err, "Failed to update expense status")
		return
	}
	response.JSON(w, http.StatusOK, expense)
}

// Delete handles DELETE /api/expenses/{id}.
func (h *expenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), callerFrom(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err, "Failed to delete expense")
		return
	}
	response.JSON(w, http.StatusOK, models.MessageResponse{Message: "Expense deleted"})
}

// Remind handles POST /api/expenses/{id}/remind.
func (h *expenseHandler) Remind(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Remind(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err, "Failed to send reminder")
		return
	}
	response.JSON(w, http.StatusOK, models.ReminderResponse{
		Message:  fmt.Sprintf("Reminder sent to %d participant%s", n, plural(n)),
		Notified: n,
	})
}

type friendHandler struct {
	svc *service.FriendService
}

// Routes returns the router for /api/friends.
func (h *friendHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// List handles GET /api/friends/.
func (h *friendHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.svc.List(callerFrom(r)))
}

type receiptHandler struct {
	svc    *service.ReceiptService
	logger *slog.Logger
}

// multipartOverhead is the allowance for form boundaries and headers on top of
// the image itself.
const multipartOverhead = 64 << 10

// Routes returns the router for /api/receipts.
func (h *receiptHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload", h.Upload)
	return r
}

// Upload handles POST /api/receipts/upload with a multipart "file" field.
func (h *receiptHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tooLarge := receipt.ErrImageTooLarge.Error()

	r.Body = http.MaxBytesReader(w, r.Body, receipt.MaxImageSize+multipartOverhead)
	if err := r.ParseMultipartForm(receipt.MaxImageSize + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, http.StatusRequestEntityTooLarge, tooLarge)
			return
		}
		response.BadRequest(w, "Expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, receipt.MaxImageSize+1))
	if err != nil {
		response.BadRequest(w, "Failed to read uploaded file")
		return
	}

	scan, err := h.svc.Upload(r.Context(), callerFrom(r), header.Filename, data)
	if err != nil {
		writeError(w, h.logger, err, "Failed to process receipt")
		return
	}
	response.JSON(w, http.StatusOK, scan)
}

type notificationHandler struct {
	svc    *service.NotificationService
	logger *slog.Logger
}

// Routes returns the router for /api/notifications.
func (h *notificationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/read", h.MarkRead)
	return r
}

// List handles GET /api/notifications/?limit=n.
func (h *notificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	notifications, err := h.svc.List(r.Context(), callerFrom(r), limit)
	if err != nil {
		writeError(w, h.logger, err, "Failed to load notifications")
		return
	}
	response.JSON(w, http.StatusOK, notifications)
}

// MarkRead handles POST /api/notifications/read.
func (h *notificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkRead(r.Context(), callerFrom(r))
	if err != nil {
		writeError(w, h.logger, err, "Failed to mark notifications read")
		return
	}
	response.JSON(w, http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("Marked %d notification%s as read", n, plural(int(n))),
	})
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
