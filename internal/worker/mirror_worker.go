// Package worker consumes sync messages and mirrors transactions into the
// configured spreadsheet.
package worker

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
)

// TransactionGetter looks up a transaction by id, category joined in.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, id string) (*core.Transaction, error)
}

// MirrorWorker resolves each sync message to its stored transaction and
// appends it to the mirror sheet.
type MirrorWorker struct {
	store  TransactionGetter
	writer sheets.TransactionWriter
	logger *applog.Logger
}

func NewMirrorWorker(store TransactionGetter, writer sheets.TransactionWriter, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorWorker{
		store:  store,
		writer: writer,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleSyncMessage processes a single sync message. Errors are returned
// so the consumer can nack and redeliver.
func (w *MirrorWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message", "id", msg.ID)

	t, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction %s: %w", msg.ID, err)
	}

	ref, err := w.writer.Append(ctx, *t)
	if err != nil {
		return fmt.Errorf("append transaction %s to sheet: %w", msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Transaction mirrored",
		"id", msg.ID,
		applog.FieldSheetsRef, ref,
		applog.FieldAmount, t.Amount.String(),
		applog.FieldCurrency, t.Currency)
	return nil
}
