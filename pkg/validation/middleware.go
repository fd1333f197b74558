// Package validation provides middleware for HTTP request validation
package validation

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type (
	queryKey  struct{}
	headerKey struct{}
)

// Middleware provides validation middleware for HTTP handlers
type Middleware struct {
	config *ValidationConfig
}

// NewMiddleware creates a new validation middleware
func NewMiddleware(config *ValidationConfig) *Middleware {
	if config == nil {
		config = DefaultValidationConfig()
	}

	return &Middleware{
		config: config,
	}
}

// ValidateQuery decodes the URL query into a new value of structType's type,
// validates it and stores it in the request context for QueryFrom. Fields
// map to parameters through their `query` tag; repeated parameters fill
// slices, single ones fill scalars.
func (m *Middleware) ValidateQuery(structType interface{}) func(http.Handler) http.Handler {
	typ := reflect.TypeOf(structType)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			val := reflect.New(typ).Interface()

			if err := decodeValues(r.URL.Query(), "query", val); err != nil {
				m.writeErrorResponse(w, http.StatusBadRequest,
					ValidationErrors{{
						Field:   "query",
						Value:   r.URL.RawQuery,
						Message: fmt.Sprintf("invalid query: %v", err),
					}})
				return
			}
			if !m.validate(w, val) {
				return
			}

			ctx := context.WithValue(r.Context(), queryKey{}, val)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// QueryFrom returns the query value stored by ValidateQuery.
func QueryFrom[T any](ctx context.Context) (*T, bool) {
	v, ok := ctx.Value(queryKey{}).(*T)
	return v, ok
}

// ValidateHeaders decodes request headers into a new value of structType's
// type through their `header` tag, validates it and stores it in the request
// context for HeadersFrom.
func (m *Middleware) ValidateHeaders(structType interface{}) func(http.Handler) http.Handler {
	typ := reflect.TypeOf(structType)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			val := reflect.New(typ).Interface()

			if err := decodeValues(r.Header, "header", val); err != nil {
				m.writeErrorResponse(w, http.StatusBadRequest,
					ValidationErrors{{
						Field:   "headers",
						Message: fmt.Sprintf("invalid headers: %v", err),
					}})
				return
			}
			if !m.validate(w, val) {
				return
			}

			ctx := context.WithValue(r.Context(), headerKey{}, val)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HeadersFrom returns the header value stored by ValidateHeaders.
func HeadersFrom[T any](ctx context.Context) (*T, bool) {
	v, ok := ctx.Value(headerKey{}).(*T)
	return v, ok
}

// validate writes the error response and returns false when val is invalid.
func (m *Middleware) validate(w http.ResponseWriter, val interface{}) bool {
	err := ValidateWithConfig(val, m.config)
	if err == nil {
		return true
	}
	if validationErrors, ok := err.(ValidationErrors); ok {
		m.writeErrorResponse(w, http.StatusBadRequest, validationErrors)
		return false
	}
	m.writeErrorResponse(w, http.StatusInternalServerError,
		ValidationErrors{{
			Field:   "validation",
			Value:   nil,
			Message: "validation failed",
		}})
	return false
}

func decodeValues(values map[string][]string, tag string, target interface{}) error {
	input := make(map[string]interface{}, len(values))
	for key, vals := range values {
		switch len(vals) {
		case 0:
		case 1:
			input[key] = vals[0]
		default:
			input[key] = vals
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          tag,
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook:       splitCommaHook,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// splitCommaHook lets a single "a,b" parameter fill a string slice.
func splitCommaHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() == reflect.String && to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.String {
		s := data.(string)
		if s == "" {
			return []string{}, nil
		}
		return strings.Split(s, ","), nil
	}
	return data, nil
}

// writeErrorResponse writes validation errors as JSON response
func (m *Middleware) writeErrorResponse(w http.ResponseWriter, statusCode int, errors ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorData, err := MarshalValidationErrors(errors)
	if err != nil {
		// Fallback error response
		w.Write([]byte(`{"error":"validation failed","message":"internal validation error"}`))
		return
	}

	w.Write(errorData)
}

// RequestValidator provides fluent API for request validation
type RequestValidator struct {
	middleware *Middleware
	handlers   []func(http.Handler) http.Handler
}

// NewRequestValidator creates a new request validator
func NewRequestValidator(config *ValidationConfig) *RequestValidator {
	return &RequestValidator{
		middleware: NewMiddleware(config),
		handlers:   make([]func(http.Handler) http.Handler, 0),
	}
}

// Query adds query parameter validation
func (rv *RequestValidator) Query(structType interface{}) *RequestValidator {
	rv.handlers = append(rv.handlers, rv.middleware.ValidateQuery(structType))
	return rv
}

// Headers adds header validation
func (rv *RequestValidator) Headers(structType interface{}) *RequestValidator {
	rv.handlers = append(rv.handlers, rv.middleware.ValidateHeaders(structType))
	return rv
}

// Build creates the final middleware handler
func (rv *RequestValidator) Build() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := next
		// Apply middleware in reverse order
		for i := len(rv.handlers) - 1; i >= 0; i-- {
			handler = rv.handlers[i](handler)
		}
		return handler
	}
}
