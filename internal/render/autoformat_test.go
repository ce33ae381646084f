package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoFormat(t *testing.T) {
	raw := "▪ First point\r▪ Second point\nOne. Two! Three? Four.\n\nPopulation was 5 000 people."

	got := AutoFormat(raw)
	assert.Equal(t,
		"## Key points\n\n- First point\n\n- Second point\n\n## Details\n\nOne. Two! Three?\n\nFour. Population was 5000 people.",
		got)
}

func TestAutoFormatEmpty(t *testing.T) {
	assert.Equal(t, "", AutoFormat(" \n\r "))
}
