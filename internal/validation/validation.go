// Package validation holds the field rules shared by the portal client and the
// HTTP handlers. Every validator is a pure function of its arguments.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of a single check. Message is empty when Valid.
type Result struct {
	Valid   bool   `json:"valid"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK is the passing result.
var OK = Result{Valid: true}

func fail(field, msg string) Result {
	return Result{Valid: false, Field: field, Message: msg}
}

// FieldKey turns a human label into the snake_case key used in API payloads.
func FieldKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// Err converts a failing result into an error, nil otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &Error{Field: r.Field, Message: r.Message}
}

// Error is a field validation failure.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

const NINLength = 11

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^0[789][01]\d{8}$`)
	yearPattern  = regexp.MustCompile(`^\d{4}$`)
)

func ValidateNIN(nin string) Result {
	if nin == "" {
		return fail("nin", "NIN is required")
	}
	if len(nin) != NINLength {
		return fail("nin", "NIN must be exactly 11 digits")
	}
	for _, r := range nin {
		if r < '0' || r > '9' {
			return fail("nin", "NIN must contain only digits")
		}
	}
	return OK
}

func ValidateEmail(email string) Result {
	if strings.TrimSpace(email) == "" {
		return fail("email", "Email is required")
	}
	if !emailPattern.MatchString(email) {
		return fail("email", "Enter a valid email address")
	}
	return OK
}

func ValidatePhone(phone string) Result {
	if strings.TrimSpace(phone) == "" {
		return fail("phone", "Phone number is required")
	}
	if !phonePattern.MatchString(phone) {
		return fail("phone", "Enter a valid phone number (e.g. 08031234567)")
	}
	return OK
}

// ValidatePassword checks length and, when a confirmation is supplied, equality.
func ValidatePassword(password string, confirm ...string) Result {
	if len(password) < 8 {
		return fail("password", "Password must be at least 8 characters")
	}
	if len(confirm) > 0 && confirm[0] != password {
		return fail("confirm_password", "Passwords do not match")
	}
	return OK
}

func ValidateRequired(label, value string) Result {
	if strings.TrimSpace(value) == "" {
		return fail(FieldKey(label), label+" is required")
	}
	return OK
}

// ValidateDate checks for a YYYY-MM-DD calendar date.
func ValidateDate(label, value string) Result {
	if strings.TrimSpace(value) == "" {
		return fail(FieldKey(label), label+" is required")
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return fail(FieldKey(label), label+" must be a valid date (YYYY-MM-DD)")
	}
	return OK
}

// ValidateNotAfter rejects a YYYY-MM-DD date later than limit.
func ValidateNotAfter(label, value string, limit time.Time) Result {
	if r := ValidateDate(label, value); !r.Valid {
		return r
	}
	d, _ := time.Parse(DateLayout, value)
	if d.After(limit) {
		return fail(FieldKey(label), label+" cannot be in the future")
	}
	return OK
}

func ValidateYear(label, value string) Result {
	if strings.TrimSpace(value) == "" {
		return fail(FieldKey(label), label+" is required")
	}
	if !yearPattern.MatchString(value) {
		return fail(FieldKey(label), label+" must be a four-digit year")
	}
	y, _ := strconv.Atoi(value)
	if y < 1900 {
		return fail(FieldKey(label), label+" must be 1900 or later")
	}
	return OK
}

func ValidateSelected(label string, id uint) Result {
	if id == 0 {
		return fail(FieldKey(label), label+" is required")
	}
	return OK
}

const DateLayout = "2006-01-02"

// First returns the first failing result, or OK.
func First(checks ...func() Result) Result {
	for _, check := range checks {
		if r := check(); !r.Valid {
			return r
		}
	}
	return OK
}
