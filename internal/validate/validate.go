// Package validate checks entry input. Format checks are advisory: they
// report, and the caller decides whether to keep the entry anyway.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

// Validate is the shared validator instance for record input rules.
var Validate *validator.Validate

func init() {
	Validate = validator.New()
	if err := Validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validator: %v", err))
	}
}

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// LooksValid reports whether date is an ISO calendar date (YYYY-MM-DD) and
// time is an hour:minute clock time with a one or two digit hour.
func LooksValid(date, clock string) bool {
	return looksLikeDate(date) && looksLikeTime(clock)
}

func looksLikeDate(value string) bool {
	if !datePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

func looksLikeTime(value string) bool {
	match := timePattern.FindStringSubmatch(value)
	if match == nil {
		return false
	}
	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	return hour <= 23 && minute <= 59
}

// Normalize trims surrounding whitespace from every field.
func Normalize(record model.Record) model.Record {
	fields := record.Fields()
	for i, field := range fields {
		fields[i] = strings.TrimSpace(field)
	}
	return model.RecordFromFields(fields)
}

// Required checks that Date, City and Activity are filled in.
func Required(record model.Record) error {
	err := Validate.Struct(record)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		missing := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			missing = append(missing, fieldError.Field())
		}
		return fmt.Errorf("%w: %s required", model.ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
}
