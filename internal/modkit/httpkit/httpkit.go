// Package httpkit provides JSON response and query binding sugar over chi routers
package httpkit

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	perr "citewatch/internal/platform/errors"
	"citewatch/internal/platform/logger"
)

// Envelope is the standard response body for all endpoints
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

var (
	vOnce    sync.Once
	validate *validator.Validate
)

// Validator returns the singleton validator with json tag names in messages
func Validator() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		validate = v
	})
	return validate
}

// Check validates v and converts field errors into a validation coded error
func Check(v any) error {
	if err := Validator().Struct(v); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "invalid request")
	}
	return nil
}

// JSON writes v as application/json with the given status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondOK writes a 200 envelope with data
func RespondOK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, http.StatusOK, Envelope{
		StatusCode: http.StatusOK,
		Status:     http.StatusText(http.StatusOK),
		RequestID:  middleware.GetReqID(r.Context()),
		Data:       data,
	})
}

// RespondError maps a project error into an envelope and writes it
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := perr.HTTPStatus(err)
	wr := perr.WireFrom(err)
	if status >= http.StatusInternalServerError {
		logger.C(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}
	JSON(w, status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       wr.Code,
		Error:      wr.Message,
		RequestID:  middleware.GetReqID(r.Context()),
	})
}

// Get mounts a body-less handler returning (data, error) under GET
func Get(r chi.Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		data, err := h(req)
		if err != nil {
			RespondError(w, req, err)
			return
		}
		RespondOK(w, req, data)
	})
}
