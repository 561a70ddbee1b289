package ticket

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "ticketdesk/pkg/errors"
)

// validateCreate checks a draft against the field rules and returns the
// trimmed draft. Pure: no side effects, called before any mutation so a
// failed validation never leaves a partial write behind.
func validateCreate(v *validator.Validate, in CreateRequest) (CreateRequest, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if err := v.Struct(in); err != nil {
		return in, formatValidationError(err)
	}
	return in, nil
}

// validateUpdate checks whichever fields a partial update carries, trimming
// the textual ones. A present-but-blank title is rejected; absent fields are
// never inspected.
func validateUpdate(v *validator.Validate, in UpdateRequest) (UpdateRequest, error) {
	ve := apperrors.NewValidationError()

	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		in.Title = &trimmed
		if trimmed == "" {
			ve.Add("title", "title is required")
		}
	}
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		in.Description = &trimmed
	}
	// omitempty would skip a present-but-empty enum, so reject those here
	if in.Status != nil && *in.Status == "" {
		ve.Add("status", "status must be one of open, in_progress, closed")
	}
	if in.Priority != nil && *in.Priority == "" {
		ve.Add("priority", "priority must be one of low, medium, high")
	}

	if err := v.Struct(in); err != nil {
		if formatted, ok := formatValidationError(err).(*apperrors.ValidationError); ok {
			for field, messages := range formatted.Fields {
				for _, message := range messages {
					ve.Add(field, message)
				}
			}
		} else {
			return in, err
		}
	}

	if !ve.Empty() {
		return in, ve
	}
	return in, nil
}

// formatValidationError converts validator.ValidationErrors into the typed
// field-message mapping.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	ve := apperrors.NewValidationError()
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			ve.Add(field, fmt.Sprintf("%s is required", field))
		case "max":
			ve.Add(field, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		case "oneof":
			choices := strings.Join(strings.Split(e.Param(), " "), ", ")
			ve.Add(field, fmt.Sprintf("%s must be one of %s", field, choices))
		default:
			ve.Add(field, fmt.Sprintf("%s is invalid", field))
		}
	}
	return ve
}
