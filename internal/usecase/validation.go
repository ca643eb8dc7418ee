package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xavierca1/prospect-crm/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateCreateProspectInput(input CreateProspectInput) []ValidationError {
	var errs []ValidationError

	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []ValidationError{{"input", err.Error()}}
		}
		for _, fe := range verrs {
			errs = append(errs, ValidationError{fe.Field(), describeTag(fe)})
		}
	}

	// required accepts whitespace-only strings
	if input.CompanyName != "" && strings.TrimSpace(input.CompanyName) == "" {
		errs = append(errs, ValidationError{"company_name", "is required"})
	}
	if input.ContactName != "" && strings.TrimSpace(input.ContactName) == "" {
		errs = append(errs, ValidationError{"contact_name", "is required"})
	}
	if err := input.StageProgress.Validate(); err != nil {
		errs = append(errs, ValidationError{"stage_progress", err.Error()})
	}

	return errs
}

func ValidateProspectUpdate(u entity.ProspectUpdate) []ValidationError {
	var errs []ValidationError

	if u.Empty() {
		return []ValidationError{{"update", "no fields to update"}}
	}

	if u.CompanyName != nil && strings.TrimSpace(*u.CompanyName) == "" {
		errs = append(errs, ValidationError{"company_name", "must not be empty"})
	}
	if u.ContactName != nil && strings.TrimSpace(*u.ContactName) == "" {
		errs = append(errs, ValidationError{"contact_name", "must not be empty"})
	}
	if u.AssignedTo != nil && strings.TrimSpace(*u.AssignedTo) == "" {
		errs = append(errs, ValidationError{"assigned_to", "must not be empty"})
	}
	if u.ContactEmail.Value != nil && *u.ContactEmail.Value != "" {
		if err := validate.Var(*u.ContactEmail.Value, "email"); err != nil {
			errs = append(errs, ValidationError{"contact_email", "is invalid"})
		}
	}
	if u.FirstContactDate != nil && !isValidDate(*u.FirstContactDate) {
		errs = append(errs, ValidationError{"first_contact_date", "must be a valid date (YYYY-MM-DD)"})
	}
	if u.ExpectedCloseDate.Value != nil && !isValidDate(*u.ExpectedCloseDate.Value) {
		errs = append(errs, ValidationError{"expected_close_date", "must be a valid date (YYYY-MM-DD)"})
	}
	if u.CurrentStage != nil && !entity.ValidStage(*u.CurrentStage) {
		errs = append(errs, ValidationError{"current_stage", fmt.Sprintf("must be between %d and %d", entity.FirstStage, entity.LastStage)})
	}
	if u.PriorityLevel != nil && !u.PriorityLevel.Valid() {
		errs = append(errs, ValidationError{"priority_level", "must be low, medium or high"})
	}
	if u.EstimatedValue.Value != nil && *u.EstimatedValue.Value < 0 {
		errs = append(errs, ValidationError{"estimated_value", "must be non-negative"})
	}
	if u.StageProgress != nil {
		if err := u.StageProgress.Validate(); err != nil {
			errs = append(errs, ValidationError{"stage_progress", err.Error()})
		}
	}
	if u.Tags != nil {
		for _, tag := range *u.Tags {
			if strings.TrimSpace(tag) == "" {
				errs = append(errs, ValidationError{"tags", "must not contain empty tags"})
				break
			}
		}
	}

	return errs
}

func validationFailure(errs []ValidationError) *DomainError {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" ("+e.Message+")")
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: "validation failed: " + strings.Join(parts, ", "),
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is invalid"
	case "datetime":
		return "must be a valid date (YYYY-MM-DD)"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be non-negative"
	case "max":
		return "must not exceed " + fe.Param() + " characters"
	}
	return "failed " + fe.Tag()
}

func isValidDate(dateStr string) bool {
	_, err := time.Parse("2006-01-02", dateStr)
	return err == nil
}
