package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func captureOut(t *testing.T) *bytes.Buffer {
	t.Helper()
	color.NoColor = true
	var buf bytes.Buffer
	orig := Out
	Out = &buf
	t.Cleanup(func() { Out = orig })
	return &buf
}

func TestHeader(t *testing.T) {
	buf := captureOut(t)

	Header("Search Complete")

	assert.Equal(t, "Search Complete\n===============\n", buf.String())
}

func TestStatusLines(t *testing.T) {
	buf := captureOut(t)

	Successf("%d organisms", 2)
	Warning("no clusters")
	Infof("rid %s", "VCZM3MWB014")

	assert.Equal(t, "✓ 2 organisms\n! no clusters\n→ rid VCZM3MWB014\n", buf.String())
}

func TestCountText(t *testing.T) {
	color.NoColor = true
	assert.Equal(t, "0", CountText(0))
	assert.Equal(t, "12", CountText(12))
}
