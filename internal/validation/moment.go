package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"moments/internal/models"
)

const (
	maxTitleLength       = 200
	maxLocationLength    = 200
	maxDescriptionLength = 5000
	maxCapacityLimit     = 100000
)

// NormalizeMomentDraft trims the free-text fields of a draft in place.
func NormalizeMomentDraft(d *models.MomentDraft) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Location = strings.TrimSpace(d.Location)
}

// ValidateMomentDraft checks a normalized draft and reports every problem at once.
func ValidateMomentDraft(d models.MomentDraft) error {
	var errs []error

	if d.Title == "" {
		errs = append(errs, errors.New("title is required"))
	} else if utf8.RuneCountInString(d.Title) > maxTitleLength {
		errs = append(errs, fmt.Errorf("title must not exceed %d characters", maxTitleLength))
	}
	if utf8.RuneCountInString(d.Description) > maxDescriptionLength {
		errs = append(errs, fmt.Errorf("description must not exceed %d characters", maxDescriptionLength))
	}
	if d.Location == "" {
		errs = append(errs, errors.New("location is required"))
	} else if utf8.RuneCountInString(d.Location) > maxLocationLength {
		errs = append(errs, fmt.Errorf("location must not exceed %d characters", maxLocationLength))
	}
	if d.Date.IsZero() {
		errs = append(errs, errors.New("date is required"))
	}
	if d.MaxCapacity < 1 {
		errs = append(errs, errors.New("max capacity must be a positive integer"))
	} else if d.MaxCapacity > maxCapacityLimit {
		errs = append(errs, fmt.Errorf("max capacity must not exceed %d", maxCapacityLimit))
	}

	return errors.Join(errs...)
}
