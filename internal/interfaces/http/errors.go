package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/timesheet-approval/internal/domain/errs"
	"github.com/garyjia/timesheet-approval/internal/domain/workflow"
)

func init() {
	// report validation failures by json field name
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// Response represents a standard JSON response
type Response struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     string       `json:"error,omitempty"`
	Fields    []FieldError `json:"fields,omitempty"`
	Retryable bool         `json:"retryable,omitempty"`
}

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrTimesheetLocked), errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, errs.ErrUpstreamUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Internal errors are logged and
// their text withheld.
func (h *Handlers) fail(c *gin.Context, action string, err error) {
	status := statusFor(err)
	resp := Response{Success: false, Error: err.Error()}

	switch status {
	case http.StatusBadRequest:
		var ve *errs.ValidationError
		if errors.As(err, &ve) {
			resp.Fields = []FieldError{{Field: ve.Field, Message: ve.Message}}
		}
	case http.StatusServiceUnavailable:
		resp.Retryable = true
		resp.Error = "upstream unavailable, retry later"
		h.logger.Error("Upstream failure", "action", action, "error", err)
	case http.StatusInternalServerError:
		resp.Error = "internal error"
		h.logger.Error("Request failed", "action", action, "error", err)
	case http.StatusForbidden:
		h.logger.Info("Request forbidden", "action", action, "account_id", requesterFrom(c).AccountID)
	}

	c.JSON(status, resp)
}

// failBinding writes a 400 for a request body or query that did not bind.
func (h *Handlers) failBinding(c *gin.Context, err error) {
	resp := Response{Success: false, Error: "invalid request"}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		ve        validator.ValidationErrors
	)
	switch {
	case errors.Is(err, io.EOF):
		resp.Error = "request body is empty"
	case errors.As(err, &syntaxErr):
		resp.Error = "malformed JSON"
	case errors.As(err, &typeErr):
		resp.Fields = []FieldError{{Field: typeErr.Field, Message: "should be of type " + typeErr.Type.String()}}
	case errors.As(err, &ve):
		for _, fe := range ve {
			resp.Fields = append(resp.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	default:
		resp.Error = err.Error()
	}

	c.JSON(http.StatusBadRequest, resp)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "min":
		return "must have at least " + fe.Param()
	}
	return "failed validation for '" + fe.Tag() + "'"
}
