package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *StudyError
		want int
	}{
		{InvalidArgument("bad rating"), http.StatusBadRequest},
		{Unauthorized("missing token"), http.StatusUnauthorized},
		{NotFound("no session"), http.StatusNotFound},
		{SessionEnded("abc"), http.StatusConflict},
		{RateLimitExceeded("slow down"), http.StatusTooManyRequests},
		{Internal("boom", fmt.Errorf("db down")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestErrorMessage(t *testing.T) {
	cause := fmt.Errorf("db down")
	err := Internal("failed to save", cause)
	assert.Equal(t, "[INTERNAL] failed to save: db down", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "[SESSION_ENDED] session s1 has ended", SessionEnded("s1").Error())
}

func TestCodeLookupThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NotFound("no session"))

	assert.True(t, IsCode(wrapped, ErrCodeNotFound))
	assert.False(t, IsCode(wrapped, ErrCodeInternal))
	assert.Equal(t, ErrCodeNotFound, GetCodeFromError(wrapped, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(fmt.Errorf("plain"), ErrCodeInternal))

	se := From(fmt.Errorf("plain"))
	assert.Equal(t, ErrCodeInternal, se.Code)
	assert.Equal(t, ErrCodeNotFound, From(wrapped).Code)
}

func TestWithContext(t *testing.T) {
	err := InvalidArgument("bad round").WithContext("round", -1)
	assert.Equal(t, -1, err.Context["round"])
}
