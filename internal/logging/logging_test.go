package logging

import (
	"bytes"
	"testing"

	"github.com/getlantern/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	defer Configure(LevelError)
	log := golog.LoggerFor("vtouchpad.logging.test")

	var errBuf, debugBuf bytes.Buffer
	require.NoError(t, ConfigureWriters(LevelError, &errBuf, &debugBuf))
	log.Debugf("hidden %d", 1)
	log.Errorf("shown %d", 2)
	assert.NotContains(t, debugBuf.String(), "hidden 1")
	assert.Contains(t, errBuf.String(), "shown 2")

	errBuf.Reset()
	require.NoError(t, ConfigureWriters("DEBUG", &errBuf, &debugBuf))
	log.Debugf("visible %d", 3)
	assert.Contains(t, debugBuf.String(), "visible 3")
	assert.Contains(t, debugBuf.String(), "vtouchpad.logging.test")
}

func TestUnknownLevel(t *testing.T) {
	assert.Error(t, Configure("verbose"))
}
