package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ysicing/pulseguard/internal/models"
)

func TestRun_ValidationShortCircuitsBeforeDispatch(t *testing.T) {
	m := &models.Monitor{Protocol: models.ProtocolTCP, Target: "", TimeoutMs: 1000}

	result := Run(context.Background(), m)

	assert.False(t, result.IsUp)
	assert.Equal(t, MissingTarget, result.ErrorType)
}

func TestRun_UnsupportedProtocol(t *testing.T) {
	m := &models.Monitor{Protocol: models.Protocol("GOPHER"), Target: "example.com", TimeoutMs: 1000}

	result := Run(context.Background(), m)

	assert.False(t, result.IsUp)
	assert.Equal(t, ProtocolMismatch, result.ErrorType)
}

func TestRun_ZeroTimeoutFallsBackToDefault(t *testing.T) {
	// Target is unresolvable so the probe fails fast rather than hanging;
	// this only asserts Run doesn't panic on timeout<=0 and always returns
	// a populated ErrorType per the invariant enforced in Run.
	m := &models.Monitor{
		Protocol: models.ProtocolDNS,
		Target:   "this-host-does-not-resolve.invalid",
	}

	result := Run(context.Background(), m)

	assert.False(t, result.IsUp)
	assert.NotEqual(t, ErrNone, result.ErrorType)
}
