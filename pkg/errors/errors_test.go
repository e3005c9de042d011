package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")

	tests := []struct {
		name         string
		err          error
		config       bool
		upstream     bool
		precondition bool
		status       int
	}{
		{"config", ConfigError("no key"), true, false, false, http.StatusServiceUnavailable},
		{"upstream", UpstreamError("call failed", cause), false, true, false, http.StatusBadGateway},
		{"schema", SchemaError("bad json", cause), false, true, false, http.StatusBadGateway},
		{"precondition", PreconditionError("empty"), false, false, true, http.StatusUnprocessableEntity},
		{"wrapped config", fmt.Errorf("generate: %w", ErrNoCredential), true, false, false, http.StatusServiceUnavailable},
		{"busy", ErrSessionBusy, false, false, false, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.config, IsConfig(tt.err))
			assert.Equal(t, tt.upstream, IsUpstream(tt.err))
			assert.Equal(t, tt.precondition, IsPrecondition(tt.err))
			assert.Equal(t, tt.status, AsAppError(tt.err).HTTPStatus)
		})
	}
}

func TestWithDetailDoesNotMutateShared(t *testing.T) {
	detailed := ErrEmptyInstruct.WithDetail("refine")
	assert.Equal(t, "refine", detailed.Detail)
	assert.Empty(t, ErrEmptyInstruct.Detail)
	assert.True(t, stderrors.Is(detailed, ErrEmptyInstruct))
}

func TestUnknownErrorWrapped(t *testing.T) {
	appErr := AsAppError(fmt.Errorf("boom"))
	assert.Equal(t, CodeUnknown, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}
