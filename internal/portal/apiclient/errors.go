package apiclient

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Category is the user-facing class of a failed call.
type Category string

const (
	CategoryValidation         Category = "validation"
	CategoryInvalidCredentials Category = "invalid-credentials"
	CategorySessionExpired     Category = "session-expired"
	CategoryForbidden          Category = "forbidden"
	CategoryNotFound           Category = "not-found"
	CategoryConflict           Category = "conflict"
	CategoryTooLarge           Category = "too-large"
	CategoryRateLimited        Category = "rate-limited"
	CategoryRejected           Category = "rejected"
	CategoryServer             Category = "server"
	CategoryNetwork            Category = "network"
)

var defaultMessages = map[Category]string{
	CategoryValidation:         "Please check the highlighted fields and try again.",
	CategoryInvalidCredentials: "Invalid email or password.",
	CategorySessionExpired:     "Your session has expired. Please log in again.",
	CategoryForbidden:          "You do not have permission to perform this action.",
	CategoryNotFound:           "The requested record was not found.",
	CategoryConflict:           "This record already exists or was changed by someone else.",
	CategoryTooLarge:           "The uploaded file is too large.",
	CategoryRateLimited:        "Too many requests. Please wait a moment and try again.",
	CategoryRejected:           "The request could not be completed.",
	CategoryServer:             "Server error. Please try again later.",
	CategoryNetwork:            "Failed to reach server. Check your connection and try again.",
}

// APIError is every failure the client returns.
type APIError struct {
	Status   int
	Category Category
	Message  string
	// Detail is the backend's own wording, kept for logs.
	Detail string
	Err    error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// Is lets errors.Is match on category: errors.Is(err, &APIError{Category: CategoryNotFound}).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Category == e.Category && (t.Status == 0 || t.Status == e.Status)
}

// CategoryOf returns the category of err, or "" when err is not an APIError.
func CategoryOf(err error) Category {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}
	return ""
}

func IsCategory(err error, c Category) bool {
	return CategoryOf(err) == c
}

func categoryFor(status int) Category {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return CategoryValidation
	case status == http.StatusUnauthorized:
		return CategorySessionExpired
	case status == http.StatusForbidden:
		return CategoryForbidden
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusConflict:
		return CategoryConflict
	case status == http.StatusRequestEntityTooLarge:
		return CategoryTooLarge
	case status == http.StatusTooManyRequests:
		return CategoryRateLimited
	case status >= 500:
		return CategoryServer
	default:
		return CategoryRejected
	}
}

// MapError turns a failed response into an APIError. Validation bodies are
// flattened into "field: reason; field: reason".
func MapError(status int, body []byte) *APIError {
	cat := categoryFor(status)
	detail := ExtractMessage(body)
	e := &APIError{Status: status, Category: cat, Detail: detail, Message: defaultMessages[cat]}

	switch cat {
	case CategoryValidation, CategoryConflict, CategoryNotFound, CategoryForbidden, CategoryRejected:
		if detail != "" {
			e.Message = detail
		}
	}
	return e
}

// NewError builds an APIError of category c with its default message.
func NewError(c Category, err error) *APIError {
	return &APIError{Category: c, Message: defaultMessages[c], Err: err}
}

func networkError(err error) *APIError {
	return NewError(CategoryNetwork, err)
}

func sessionExpired(err error) *APIError {
	e := NewError(CategorySessionExpired, err)
	e.Status = http.StatusUnauthorized
	return e
}

// ExtractMessage reads the human message from the error shapes the backend
// uses: {"errors": {f: [..]}}, {"detail": ..}, {"message": ..}, {"error": ..}
// or a bare {f: [..]} map.
func ExtractMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		if root.Type == gjson.String {
			return root.String()
		}
		return ""
	}

	if errs := root.Get("errors"); errs.IsObject() {
		if msg := flattenFields(errs); msg != "" {
			return msg
		}
	} else if errs.IsArray() {
		if msg := joinStrings(errs); msg != "" {
			return msg
		}
	}
	for _, key := range []string{"detail", "message", "error"} {
		if v := root.Get(key); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return flattenFields(root)
}

func flattenFields(obj gjson.Result) string {
	var parts []string
	obj.ForEach(func(key, value gjson.Result) bool {
		var reason string
		switch {
		case value.IsArray():
			reason = joinStrings(value)
		case value.Type == gjson.String:
			reason = value.String()
		}
		if reason != "" {
			parts = append(parts, key.String()+": "+reason)
		}
		return true
	})
	return strings.Join(parts, "; ")
}

func joinStrings(arr gjson.Result) string {
	var out []string
	for _, v := range arr.Array() {
		if v.Type == gjson.String && v.String() != "" {
			out = append(out, v.String())
		}
	}
	return strings.Join(out, ", ")
}
