package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugfGatedBySetDebug(t *testing.T) {
	var b bytes.Buffer
	SetOutput(&b)

	SetDebug(false)
	Debugf("hidden %d", 1)
	assert.Empty(t, b.String())

	SetDebug(true)
	Debugf("shown %d", 2)
	assert.Contains(t, b.String(), "shown 2")
}

func TestInfofAlwaysEmits(t *testing.T) {
	var b bytes.Buffer
	SetOutput(&b)

	Infof("hello %s", "world")
	assert.Contains(t, b.String(), "hello world")
}

func TestWarnfAlwaysEmits(t *testing.T) {
	var b bytes.Buffer
	SetOutput(&b)

	Warnf("quorum drift on %s", "providerA")
	assert.Contains(t, b.String(), "quorum drift on providerA")
}
