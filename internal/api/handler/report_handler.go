package handler

import (
	"bank-reports/internal/api/handler/dto"
	"bank-reports/internal/domain/report"
	"bank-reports/internal/pkg/apperrors"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type ReportHandler struct {
	service report.Service
	logger  *slog.Logger
}

func NewReportHandler(s report.Service, l *slog.Logger) *ReportHandler {
	if s == nil {
		panic("report service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &ReportHandler{
		service: s,
		logger:  l.With("component", "ReportHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrInvalidArgument):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrViewCreation), errors.Is(err, apperrors.ErrExport):
		message = err.Error()
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getDNIFromURL(r *http.Request) (string, error) {
	dni := strings.TrimSpace(chi.URLParam(r, "dni"))
	if dni == "" {
		return "", fmt.Errorf("%w: dni not found in URL path", apperrors.ErrInvalidArgument)
	}
	return dni, nil
}

// CustomersByLocation handles GET /reports/customers-by-location.
// Runs the customer directory report and exports it to CSV as a side effect.
func (h *ReportHandler) CustomersByLocation(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received customers by location report request")

	rows, err := h.service.CustomersByLocation(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to run customers by location report", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Customers by location report served", slog.Int("count", len(rows)))
	respondJSON(w, http.StatusOK, dto.NewReportResponse("customers_by_location", report.FileCustomersByLocation, rows))
}

// BalanceByCurrency handles GET /reports/balance-by-currency.
func (h *ReportHandler) BalanceByCurrency(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received balance by currency report request")

	rows, err := h.service.BalanceByCurrency(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to run balance by currency report", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Balance by currency report served", slog.Int("count", len(rows)))
	respondJSON(w, http.StatusOK, dto.NewReportResponse("balance_by_currency", report.FileBalanceByCurrency, rows))
}

// ActiveLoansByDNI handles GET /reports/active-loans/{dni}.
// An unknown DNI is a 404; a known customer with no active loans is an empty 200.
func (h *ReportHandler) ActiveLoansByDNI(w http.ResponseWriter, r *http.Request) {
	dni, err := getDNIFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get dni from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.DebugContext(r.Context(), "Received active loans report request", slog.String("dni", dni))

	rows, err := h.service.ActiveLoansByDNI(r.Context(), dni)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrInvalidArgument) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to run active loans report", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Active loans report served", slog.String("dni", dni), slog.Int("count", len(rows)))
	respondJSON(w, http.StatusOK, dto.NewReportResponse("active_loans", report.ActiveLoansFilename(dni), rows))
}

// TopCustomersByVolume handles GET /reports/top-customers.
func (h *ReportHandler) TopCustomersByVolume(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received top customers report request")

	rows, err := h.service.TopCustomersByVolume(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to run top customers report", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Top customers report served", slog.Int("count", len(rows)))
	respondJSON(w, http.StatusOK, dto.NewReportResponse("top_customers", report.FileTopCustomers, rows))
}

// PendingInstallments handles GET /reports/pending-installments.
func (h *ReportHandler) PendingInstallments(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received pending installments report request")

	rows, err := h.service.PendingInstallments(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to run pending installments report", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Pending installments report served", slog.Int("count", len(rows)))
	respondJSON(w, http.StatusOK, dto.NewReportResponse("pending_installments", report.FilePendingInstallments, rows))
}

// CustomerSummary handles GET /reports/customer-summary.
// Recreates the summary view, reads it back and exports the result.
func (h *ReportHandler) CustomerSummary(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received customer summary report request")

	rows, err := h.service.RefreshCustomerSummary(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to run customer summary report", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Customer summary report served", slog.Int("count", len(rows)))
	respondJSON(w, http.StatusOK, dto.NewReportResponse("customer_summary", report.FileCustomerSummary, rows))
}

// CreateCustomerSummaryView handles POST /reports/customer-summary/view.
// Idempotent: re-running replaces the view definition.
func (h *ReportHandler) CreateCustomerSummaryView(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received create customer summary view request")

	if err := h.service.CreateCustomerSummaryView(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to create customer summary view", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Customer summary view created")
	respondJSON(w, http.StatusCreated, dto.ViewResponse{View: report.SummaryViewName, Status: "created"})
}
