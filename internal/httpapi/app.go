package httpapi

import (
	"context"

	"go.uber.org/zap"

	"github.com/osama-agency/telesklad-sub006/internal/queue"
	"github.com/osama-agency/telesklad-sub006/internal/storage"
	"github.com/osama-agency/telesklad-sub006/internal/telegram"
)

// CallbackAnswerer is the slice of the Telegram client the webhook handler
// needs to acknowledge inline button presses.
type CallbackAnswerer interface {
	AnswerCallbackQuery(ctx context.Context, bot telegram.Bot, queryID, text string) error
}

// ClickCounter is the slice of the storage layer behind the payment-button
// endpoints. *storage.Store satisfies it.
type ClickCounter interface {
	RegisterPaymentClick(ctx context.Context, purchaseID int64) (storage.ClickResult, error)
}

// App carries the handler dependencies. Everything is injected; the package
// holds no globals.
type App struct {
	Queue    *queue.Service
	Clicks   ClickCounter
	Telegram CallbackAnswerer
	Log      *zap.Logger
}
