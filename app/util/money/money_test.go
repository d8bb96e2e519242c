package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "Rp 0", Format(0))
	assert.Equal(t, "Rp 500", Format(500))
	assert.Equal(t, "Rp 50.000", Format(50_000))
	assert.Equal(t, "Rp 1.250.000", Format(1_250_000))
}
