package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/garnizeh/fieldlog/internal/notify"
	"github.com/garnizeh/fieldlog/internal/schema"
	"github.com/garnizeh/fieldlog/internal/timesheet"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Error codes carried by errorResponse.Code.
const (
	CodeValidation     = "validation"
	CodeProfileMissing = "profile_missing"
	CodeDeactivated    = "account_deactivated"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeUnauthorized   = "unauthorized"
	CodeInternal       = "internal"
)

const remediationNewProfile = "POST /v1/me/profile"

type errorResponse struct {
	Error       string            `json:"error"`
	Code        string            `json:"code"`
	Fields      map[string]string `json:"fields,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, errorResponse{Error: msg, Code: code}, status)
}

// writeServiceError maps domain errors onto the HTTP error taxonomy. Anything
// unrecognised is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var sve *schema.ValidationError
	var tve *timesheet.ValidationError

	switch {
	case errors.As(err, &sve):
		fields := make(map[string]string, len(sve.Errors))
		for _, fe := range sve.Errors {
			if _, ok := fields[fe.Field]; !ok {
				fields[fe.Field] = fe.Message
			}
		}
		writeJSON(w, errorResponse{Error: "invalid request", Code: CodeValidation, Fields: fields}, http.StatusBadRequest)
	case errors.As(err, &tve):
		writeJSON(w, errorResponse{Error: "invalid request", Code: CodeValidation, Fields: tve.Fields}, http.StatusBadRequest)
	case errors.Is(err, timesheet.ErrZeroHours),
		errors.Is(err, notify.ErrEmptyMessage),
		errors.Is(err, notify.ErrNoRecipient),
		errors.Is(err, notify.ErrInvalidRecipients),
		errors.Is(err, notify.ErrUnknownRecipient):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, timesheet.ErrProfileMissing):
		writeJSON(w, errorResponse{Error: err.Error(), Code: CodeProfileMissing, Remediation: remediationNewProfile}, http.StatusNotFound)
	case errors.Is(err, timesheet.ErrDeactivated):
		writeError(w, http.StatusForbidden, CodeDeactivated, err.Error())
	case errors.Is(err, timesheet.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, timesheet.ErrProfileExists):
		writeError(w, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, context.Canceled):
		logger.Info("request canceled", slog.String("path", r.URL.Path))
	default:
		logger.Error("request failed", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

// readValidated reads the request body, checks it against the named schema
// and decodes it into dst.
func readValidated(w http.ResponseWriter, r *http.Request, schemas *schema.Loader, name string, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &schema.ValidationError{Errors: []schema.FieldError{{Field: "body", Message: "unreadable body"}}}
	}
	if err := schemas.Validate(r.Context(), name, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &schema.ValidationError{Errors: []schema.FieldError{{Field: "body", Message: err.Error()}}}
	}
	return nil
}
