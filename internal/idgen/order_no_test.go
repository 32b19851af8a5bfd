package idgen

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderNoPattern = regexp.MustCompile(`^\d{14}[1-9]\d{2}$`)

func TestNewOrderNumber_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		no := NewOrderNumber()
		require.Len(t, no, 17)
		assert.Regexp(t, orderNoPattern, no)

		suffix, err := strconv.Atoi(no[14:])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, suffix, 100)
		assert.LessOrEqual(t, suffix, 999)
	}
}

func TestOrderNumberAt_Timestamp(t *testing.T) {
	ts := time.Date(2025, 9, 12, 8, 5, 3, 0, time.Local)
	no := orderNumberAt(ts)
	assert.Equal(t, "20250912080503", no[:14])

	parsed, err := time.ParseInLocation(orderNoLayout, no[:14], time.Local)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}

func TestNew_LazyDefaultNode(t *testing.T) {
	a := New()
	b := New()
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)
}
