package main

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// formatAmount renders a wei amount with the configured number of decimals.
func formatAmount(wei uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(wei), -decimals).String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
