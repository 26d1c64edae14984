package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, 0)

	l.Debug("hidden")
	l.Info("Auth service: login completed", "account_id", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `msg="Auth service: login completed"`)
	assert.Contains(t, out, "account_id=7")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, -4).With("component", "ledger")

	l.Debug("token revoked")

	assert.Contains(t, buf.String(), "component=ledger")
}
