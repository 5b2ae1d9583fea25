package common

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoney(t *testing.T) {
	if got := Money(decimal.RequireFromString("-2.5")); got != "-$2.50" {
		t.Errorf("Money = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("0123456789abcdef", 8); got != "01234567..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 8); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestBoxPrefix(t *testing.T) {
	if BoxPrefix(true) == BoxPrefix(false) {
		t.Error("last and middle prefixes must differ")
	}
}
