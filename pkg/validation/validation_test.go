package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError{
		Field:   "name",
		Value:   "",
		Message: "field is required",
	}

	expected := "validation error on field 'name': field is required (got: )"
	assert.Equal(t, expected, err.Error())
}

func TestValidationErrors(t *testing.T) {
	errors := ValidationErrors{
		{Field: "name", Value: "", Message: "field is required"},
		{Field: "size", Value: -1, Message: "must be positive"},
	}

	expected := "validation error on field 'name': field is required (got: ); validation error on field 'size': must be positive (got: -1)"
	assert.Equal(t, expected, errors.Error())
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
}

func TestCustomValidationFunctions(t *testing.T) {
	type sample struct {
		NodeID   string `validate:"node_id"`
		PortName string `validate:"port_name"`
		PortType string `validate:"port_type"`
		TypeTag  string `validate:"type_tag"`
		Version  string `validate:"semver"`
		Format   string `validate:"format_version"`
		Codec    string `validate:"codec"`
		Compress string `validate:"compression"`
	}
	valid := sample{
		NodeID:   "node_1",
		PortName: "input1",
		PortType: "real",
		TypeTag:  "BinaryOperationNode<real>",
		Version:  "1.2.3-beta+build",
		Format:   "1.4.0",
		Codec:    "msgpack",
		Compress: "zstd",
	}
	require.NoError(t, ValidateWithPlayground(valid))

	tests := []struct {
		name  string
		mod   func(*sample)
		field string
	}{
		{"node id with space", func(s *sample) { s.NodeID = "node 1" }, "NodeID"},
		{"empty node id", func(s *sample) { s.NodeID = "" }, "NodeID"},
		{"port name starting with digit", func(s *sample) { s.PortName = "1input" }, "PortName"},
		{"unknown port type", func(s *sample) { s.PortType = "complex" }, "PortType"},
		{"type tag with unbalanced bracket", func(s *sample) { s.TypeTag = "SumNode<real" }, "TypeTag"},
		{"version without patch", func(s *sample) { s.Version = "1.2" }, "Version"},
		{"future format", func(s *sample) { s.Format = "2.0.0" }, "Format"},
		{"unknown codec", func(s *sample) { s.Codec = "xml" }, "Codec"},
		{"unknown compression", func(s *sample) { s.Compress = "lz4" }, "Compress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mod(&s)
			err := ValidateWithPlayground(s)
			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			require.Len(t, errs, 1)
			assert.Equal(t, "sample."+tt.field, errs[0].Field)
		})
	}
}

type limitedStruct struct {
	A string `json:"a" validate:"required"`
	B string `json:"b" validate:"required"`
	C string `json:"c" validate:"required"`
}

func TestValidateWithConfig(t *testing.T) {
	err := ValidateWithConfig(limitedStruct{}, &ValidationConfig{MaxErrors: 2})
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
	assert.Equal(t, "limitedStruct.a", errs[0].Field)

	err = ValidateWithConfig(limitedStruct{}, nil)
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 3)

	assert.Error(t, ValidateWithPlayground("not a struct"))
}

func TestValidationConfig(t *testing.T) {
	config := DefaultValidationConfig()
	assert.True(t, config.StrictMode)
	assert.Equal(t, 10, config.MaxErrors)
}

func TestMarshalUnmarshalValidationErrors(t *testing.T) {
	original := ValidationErrors{
		{Field: "name", Value: "x", Message: "bad"},
		{Field: "size", Value: float64(-1), Message: "negative"},
	}
	data, err := MarshalValidationErrors(original)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(2), raw["count"])

	decoded, err := UnmarshalValidationErrors(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	_, err = UnmarshalValidationErrors([]byte("{"))
	assert.Error(t, err)
}

type listQuery struct {
	Name   string   `query:"name" json:"name" validate:"omitempty,max=20"`
	Tags   []string `query:"tag" json:"tag" validate:"dive,alphanum"`
	Limit  int      `query:"limit" json:"limit" validate:"min=0,max=100"`
	Format string   `query:"format" json:"format" validate:"omitempty,codec"`
}

func TestValidationMiddleware_Query(t *testing.T) {
	var got *listQuery
	handler := NewMiddleware(nil).ValidateQuery(listQuery{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, ok := QueryFrom[listQuery](r.Context())
		require.True(t, ok)
		got = q
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		want       *listQuery
	}{
		{
			name:       "valid with repeated tags",
			query:      "name=demo&tag=a&tag=b&limit=5&format=json",
			wantStatus: http.StatusOK,
			want:       &listQuery{Name: "demo", Tags: []string{"a", "b"}, Limit: 5, Format: "json"},
		},
		{
			name:       "comma separated tags",
			query:      "tag=x,y",
			wantStatus: http.StatusOK,
			want:       &listQuery{Tags: []string{"x", "y"}},
		},
		{
			name:       "limit out of range",
			query:      "limit=500",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "limit not numeric",
			query:      "limit=lots",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown format",
			query:      "format=xml",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/models?"+tt.query, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.want != nil {
				assert.Equal(t, tt.want, got)
				return
			}
			assert.Nil(t, got)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			errs, err := UnmarshalValidationErrors(rec.Body.Bytes())
			require.NoError(t, err)
			assert.NotEmpty(t, errs)
		})
	}
}

type uploadHeaders struct {
	ContentType string `header:"Content-Type" json:"Content-Type" validate:"required,archive_media_type"`
}

func TestRequestValidator(t *testing.T) {
	var seen *uploadHeaders
	handler := NewRequestValidator(nil).
		Headers(uploadHeaders{}).
		Query(listQuery{}).
		Build()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = HeadersFrom[uploadHeaders](r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name        string
		target      string
		contentType string
		wantStatus  int
	}{
		{"valid", "/?limit=1", "application/msgpack", http.StatusNoContent},
		{"media type parameters", "/", "application/json; charset=utf-8", http.StatusNoContent},
		{"missing header", "/", "", http.StatusBadRequest},
		{"unsupported media type", "/", "text/html", http.StatusBadRequest},
		{"bad query", "/?limit=-1", "application/json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, tt.contentType, seen.ContentType)
			}
		})
	}
}
