package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := map[error]int{
		nil:                                  http.StatusOK,
		fmt.Errorf("app 3: %w", ErrNotFound): http.StatusNotFound,
		ErrForbidden:                         http.StatusForbidden,
		ErrDuplicate:                         http.StatusConflict,
		fmt.Errorf("x: %w", ErrInvalidTransition): http.StatusConflict,
		ErrPaymentRequired:                        http.StatusPaymentRequired,
		ErrInvalidInput:                           http.StatusBadRequest,
		ErrTooLarge:                               http.StatusRequestEntityTooLarge,
		ErrUnavailable:                            http.StatusBadGateway,
		errors.New("boom"):                        http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(err), "%v", err)
	}
}
