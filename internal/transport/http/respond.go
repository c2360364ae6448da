package httptransport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/apperror"
)

const (
	internalErrorMessage = "Internal server error"
	maxJSONBody          = 1 << 20
)

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Status: "error", Message: msg})
}

// writeError maps business errors to their status and hides everything else behind a 500.
func writeError(log *zap.Logger, w http.ResponseWriter, err error) {
	if appErr, ok := apperror.As(err); ok {
		log.Info("request rejected", zap.Int("status", appErr.Status()), zap.String("reason", appErr.Message))
		writeMessage(w, appErr.Status(), appErr.Message)
		return
	}
	log.Error("request failed", zap.Error(err))
	writeMessage(w, http.StatusInternalServerError, internalErrorMessage)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// decode reads a JSON body into dst and validates it.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("Request body is required.")
		}
		return apperror.Validation("Invalid JSON body.")
	}
	return h.check(dst)
}

func (h *handler) check(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperror.Validation(validationMessage(verrs[0]))
	}
	return apperror.Validation("Invalid request.")
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%q is required", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%q must be a valid GUID", field)
	case "eqfield":
		return fmt.Sprintf("%q must match %q", field, strings.ToLower(fe.Param()))
	case "min":
		return fmt.Sprintf("%q must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q must be at most %s", field, fe.Param())
	case "required_with":
		return fmt.Sprintf("%q is required", field)
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}
