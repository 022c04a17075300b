package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/learning-insights-api/pkg/errors"
)

// PredictionRequest selects the subject and horizon of a score forecast.
type PredictionRequest struct {
	TenantID  string
	StudentID string `name:"student_id" validate:"required"`
	Subject   string `name:"subject" validate:"required"`
	DaysAhead int    `name:"days_ahead" validate:"min=0,max=365"`
}

// RecommendationRequest parameterises content-based recommendations.
type RecommendationRequest struct {
	TenantID       string
	StudentID      string `name:"student_id" validate:"required"`
	Subject        string
	Limit          int `name:"limit" validate:"min=1,max=20"`
	IncludeReasons bool
}

// PeerRecommendationRequest parameterises collaborative recommendations.
type PeerRecommendationRequest struct {
	TenantID  string
	StudentID string `name:"student_id" validate:"required"`
	Limit     int    `name:"limit" validate:"min=1,max=20"`
	MinCommon int    `name:"min_common" validate:"min=1,max=50"`
}

// NewValidator returns a validator that reports fields by their `name` tag, the
// parameter name clients send.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("name"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// validationError maps validator failures onto API errors: absent required fields are
// bad requests, out-of-range values are unprocessable.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request")
	}

	missing := make([]string, 0, len(fieldErrs))
	invalid := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fe.Field()
		if fe.Tag() == "required" {
			missing = append(missing, name)
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s must satisfy %s=%s", name, fe.Tag(), fe.Param()))
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "missing required parameter: "+strings.Join(missing, ", "))
	}
	return appErrors.Clone(appErrors.ErrUnprocessable, strings.Join(invalid, "; "))
}
