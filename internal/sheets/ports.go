// Package sheets defines the outbound ports for the spreadsheet mirror.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// TransactionWriter appends a transaction row to the mirror and returns a
// reference to the written row.
type TransactionWriter interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
