// Package validation provides enhanced validation with go-playground/validator integration
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/flowgraph/portgraph/internal/core/graph"
	"github.com/flowgraph/portgraph/pkg/serialization"
)

// Enhanced validator instance with custom validations
var (
	// Validate is the main validator instance
	Validate *validator.Validate
)

var (
	nodeIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)
	portNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	typeTagPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(<[A-Za-z0-9_, ]+>)?$`)
	semverPattern   = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(-[\w\.-]+)?(\+[\w\.-]+)?$`)
)

func init() {
	Validate = validator.New()

	// Register custom validation functions
	Validate.RegisterValidation("node_id", validateNodeID)
	Validate.RegisterValidation("port_name", validatePortName)
	Validate.RegisterValidation("port_type", validatePortType)
	Validate.RegisterValidation("type_tag", validateTypeTag)
	Validate.RegisterValidation("semver", validateSemVer)
	Validate.RegisterValidation("format_version", validateFormatVersion)
	Validate.RegisterValidation("codec", validateCodec)
	Validate.RegisterValidation("compression", validateCompression)
	Validate.RegisterValidation("archive_media_type", validateArchiveMediaType)

	// Register tag name function to use JSON tags for field names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateWithPlayground validates using go-playground/validator
func ValidateWithPlayground(s interface{}) error {
	err := Validate.Struct(s)
	if err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors converts validator errors to our custom format
func formatValidationErrors(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	var out ValidationErrors
	for _, fieldError := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fieldError.Namespace(),
			Value:   fieldError.Value(),
			Message: getErrorMessage(fieldError),
		})
	}
	return out
}

// getErrorMessage returns a human-readable error message
func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "node_id":
		return "must be a valid node identifier (alphanumeric, underscore, hyphen, dot, colon)"
	case "port_name":
		return "must be a valid port name (identifier characters, not starting with a digit)"
	case "port_type":
		return "must be one of: real integer boolean categorical"
	case "type_tag":
		return "must be a type tag such as Kind or Kind<elem>"
	case "semver":
		return "must be a semantic version"
	case "format_version":
		return fmt.Sprintf("must be a %s.x format version", formatMajor())
	case "codec":
		return "must be one of: json msgpack yaml"
	case "compression":
		return "must be one of: none gzip zstd"
	case "archive_media_type":
		return "must be a json, msgpack, yaml or octet-stream media type"
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

// Custom validation functions for portgraph-specific rules

// validateNodeID validates node identifier format
func validateNodeID(fl validator.FieldLevel) bool {
	nodeID := fl.Field().String()
	return len(nodeID) <= 100 && nodeIDPattern.MatchString(nodeID)
}

func validatePortName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return len(name) <= 64 && portNamePattern.MatchString(name)
}

func validatePortType(fl validator.FieldLevel) bool {
	return graph.PortType(fl.Field().String()).Valid()
}

func validateTypeTag(fl validator.FieldLevel) bool {
	return typeTagPattern.MatchString(fl.Field().String())
}

// validateSemVer validates semantic version format
func validateSemVer(fl validator.FieldLevel) bool {
	return semverPattern.MatchString(fl.Field().String())
}

// validateFormatVersion accepts semantic versions this build can read.
func validateFormatVersion(fl validator.FieldLevel) bool {
	version := fl.Field().String()
	if !semverPattern.MatchString(version) {
		return false
	}
	major, _, _ := strings.Cut(version, ".")
	return major == formatMajor()
}

func formatMajor() string {
	major, _, _ := strings.Cut(graph.FormatVersion, ".")
	return major
}

func validateCodec(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "json", "msgpack", "yaml":
		return true
	}
	return false
}

func validateCompression(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "none", "gzip", "zstd":
		return true
	}
	return false
}

func validateArchiveMediaType(fl validator.FieldLevel) bool {
	_, ok := serialization.CodecForMediaType(fl.Field().String())
	return ok
}

// ValidationConfig holds validation configuration
type ValidationConfig struct {
	StrictMode bool `json:"strict_mode"`
	MaxErrors  int  `json:"max_errors"`
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		StrictMode: true,
		MaxErrors:  10,
	}
}

// ValidateWithConfig validates with specific configuration
func ValidateWithConfig(s interface{}, config *ValidationConfig) error {
	if config == nil {
		config = DefaultValidationConfig()
	}

	err := ValidateStruct(s)
	var validationErrors ValidationErrors
	if errors.As(err, &validationErrors) && config.MaxErrors > 0 && len(validationErrors) > config.MaxErrors {
		return validationErrors[:config.MaxErrors]
	}
	return err
}

type errorResponse struct {
	Errors []ValidationError `json:"errors"`
	Count  int               `json:"count"`
}

// MarshalValidationErrors marshals validation errors to JSON
func MarshalValidationErrors(errs ValidationErrors) ([]byte, error) {
	return json.Marshal(errorResponse{Errors: errs, Count: len(errs)})
}

// UnmarshalValidationErrors unmarshals validation errors from JSON
func UnmarshalValidationErrors(data []byte) (ValidationErrors, error) {
	var response errorResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, err
	}
	return ValidationErrors(response.Errors), nil
}
