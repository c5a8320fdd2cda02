package logging

import (
	"bytes"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	assert.Equal(t, log.INFO, LevelFor(true))
	assert.Equal(t, log.DEBUG, LevelFor(false))
}

func TestNew(t *testing.T) {
	assert := assert.New(t)
	var buf bytes.Buffer

	l := New("quota", log.INFO)
	l.SetOutput(&buf)
	l.Debugf("hidden")
	assert.Empty(buf.String())

	l.Infof("evicted %d", 2)
	assert.Contains(buf.String(), "evicted 2")
	assert.Contains(buf.String(), "quota")
	assert.Equal("quota", l.Prefix())

	var _ Logger = l
}

func TestDiscard(t *testing.T) {
	l := Discard("test")
	assert.NotPanics(t, func() {
		l.Errorf("dropped %s", "message")
	})
	assert.Equal(t, "test", l.Prefix())
}
