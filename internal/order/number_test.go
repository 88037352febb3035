package order

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	n := NewOrderNumber(now)
	assert.Regexp(t, regexp.MustCompile(`^ORD-20250901-[0-9A-F]{8}$`), n)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[NewOrderNumber(now)] = true
	}
	assert.Len(t, seen, 100, "numbers for the same instant must still differ")
}
