package errors_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

type ValidationTestSuite struct {
	suite.Suite
}

func TestValidationSuite(t *testing.T) {
	suite.Run(t, new(ValidationTestSuite))
}

func (s *ValidationTestSuite) TestValidationError() {
	ve := errors.NewValidationError()
	ve.AddFieldError("name", "is required")
	ve.AddFieldError("base_url", "is invalid")

	s.True(ve.HasErrors())
	s.Equal("validation failed: base_url: is invalid; name: is required", ve.Error())

	err := ve.ToError()
	s.Equal(errors.CodeInvalidArgument, err.Code)
	s.NotNil(err.Meta["validation_errors"])
}

func (s *ValidationTestSuite) TestValidationBuilder() {
	vb := errors.NewValidationBuilder()
	vb.Field("name", "is required").
		Fieldf("attempts", "must be between %d and %d", 1, 10).
		RequiredField("source").
		InvalidField("type", "unknown data type")

	err := vb.Build()
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))
}

func (s *ValidationTestSuite) TestValidationBuilderNoErrors() {
	s.NoError(errors.NewValidationBuilder().Build())
}

func (s *ValidationTestSuite) TestValidateRequired() {
	testCases := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{"valid value", "creatures", false},
		{"empty string", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			vb := errors.NewValidationBuilder()
			errors.ValidateRequired("field", tc.value, vb)
			s.Equal(tc.shouldErr, vb.Build() != nil)
		})
	}
}

func (s *ValidationTestSuite) TestValidatePositiveDuration() {
	vb := errors.NewValidationBuilder()
	errors.ValidatePositiveDuration("ttl", 5*time.Minute, vb)
	s.NoError(vb.Build())

	vb = errors.NewValidationBuilder()
	errors.ValidatePositiveDuration("ttl", 0, vb)
	s.Error(vb.Build())
}

func (s *ValidationTestSuite) TestValidateURL() {
	testCases := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{"http url", "http://localhost:8080/data", false},
		{"https url", "https://example.com", false},
		{"missing scheme", "example.com/data", true},
		{"ftp scheme", "ftp://example.com", true},
		{"no host", "http://", true},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			vb := errors.NewValidationBuilder()
			errors.ValidateURL("base_url", tc.value, vb)
			s.Equal(tc.shouldErr, vb.Build() != nil)
		})
	}
}

func (s *ValidationTestSuite) TestValidateRangeAndEnum() {
	vb := errors.NewValidationBuilder()
	errors.ValidateRange("attempts", 3, 1, 10, vb)
	errors.ValidateEnum("format", "json", []string{"text", "json"}, vb)
	s.NoError(vb.Build())

	vb = errors.NewValidationBuilder()
	errors.ValidateRange("attempts", 0, 1, 10, vb)
	errors.ValidateEnum("format", "xml", []string{"text", "json"}, vb)
	err := vb.Build()
	s.Require().Error(err)
	s.Contains(err.Error(), "attempts: must be between 1 and 10")
	s.Contains(err.Error(), "format: must be one of: text, json")
}
