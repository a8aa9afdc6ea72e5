package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/config"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

func TestFromError(t *testing.T) {
	gateFailed := &verify.GateFailedError{Result: &verify.Result{Message: "over threshold"}}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"gate failed", gateFailed, GateFailed},
		{"wrapped gate failure", fmt.Errorf("verify: %w", gateFailed), GateFailed},
		{"missing inputs", &config.MissingInputsError{Inputs: []string{"apiKey"}}, Error},
		{"connection", verify.ErrConnection, Error},
		{"canceled", context.Canceled, Error},
		{"anything else", errors.New("boom"), Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromError(tt.err))
		})
	}
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "Contrast verify gate passed", Description(Success))
	assert.Equal(t, "Contrast verify gate failed", Description(GateFailed))
	assert.Equal(t, "Configuration, network or API error", Description(Error))
	assert.Equal(t, "Unknown exit code", Description(42))
}
