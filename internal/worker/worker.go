package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/osama-agency/telesklad-sub006/internal/job"
	"github.com/osama-agency/telesklad-sub006/internal/queue"
	"github.com/osama-agency/telesklad-sub006/internal/telegram"
)

// Sender is the slice of the Telegram client the dispatcher uses.
type Sender interface {
	SendMessage(ctx context.Context, bot telegram.Bot, msg telegram.Message) (int64, error)
}

type Config struct {
	PollInterval time.Duration // queue poll period
	PageSize     int64         // max jobs popped per queue per tick
}

func DefaultConfig() Config {
	return Config{PollInterval: time.Second, PageSize: 25}
}

// Dispatcher polls the queue store for due jobs and performs their side
// effects. A popped job is gone from the store whatever the send outcome:
// delivery is at-most-one-attempt, failed sends are logged and dropped.
type Dispatcher struct {
	store  *queue.Store
	sender Sender
	log    *zap.Logger
	cfg    Config
	now    func() time.Time
}

func NewDispatcher(store *queue.Store, sender Sender, log *zap.Logger, cfg Config) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{store: store, sender: sender, log: log, cfg: cfg, now: time.Now}
}

// Run polls until ctx is canceled. Run exactly one dispatcher per queue
// set: PopDue takes no lease, so concurrent pollers can double-deliver.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.log.Info("dispatcher started",
		zap.Duration("poll_interval", d.cfg.PollInterval),
		zap.Int64("page_size", d.cfg.PageSize))

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopping", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick drains one page of due jobs from every known queue.
func (d *Dispatcher) Tick(ctx context.Context) {
	for _, q := range queue.Known {
		raws, err := d.store.PopDue(ctx, q, d.now(), d.cfg.PageSize)
		if err != nil {
			d.log.Error("poll failed", zap.String("queue", q), zap.Error(err))
			continue
		}
		for _, raw := range raws {
			d.process(ctx, q, raw)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, q string, raw []byte) {
	j, err := job.Decode(raw)
	if err != nil {
		d.log.Error("malformed job dropped", zap.String("queue", q), zap.Error(err))
		return
	}

	msg, err := d.buildMessage(j)
	if err != nil {
		d.log.Error("job dropped",
			zap.String("queue", q),
			zap.String("job_id", j.ID),
			zap.String("type", string(j.Type)),
			zap.Error(err))
		return
	}

	messageID, err := d.sender.SendMessage(ctx, telegram.BotMain, msg)
	if err != nil {
		// Terminal: the job left the store when it was popped and is not
		// re-enqueued on failure.
		d.log.Error("send failed",
			zap.String("job_id", j.ID),
			zap.String("type", string(j.Type)),
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err))
		return
	}
	d.log.Info("notification sent",
		zap.String("job_id", j.ID),
		zap.String("type", string(j.Type)),
		zap.Int64("chat_id", msg.ChatID),
		zap.Int64("message_id", messageID))
}

// buildMessage turns a job into the outbound Telegram message for its kind.
func (d *Dispatcher) buildMessage(j job.Job) (telegram.Message, error) {
	switch j.Type {
	case job.TypeOrderStatusChange:
		var p job.OrderStatusChange
		if err := json.Unmarshal(j.Data, &p); err != nil {
			return telegram.Message{}, decodeErr(j.Type, err)
		}
		return orderStatusMessage(p), nil

	case job.TypePurchaseCreated:
		var p job.PurchaseCreated
		if err := json.Unmarshal(j.Data, &p); err != nil {
			return telegram.Message{}, decodeErr(j.Type, err)
		}
		return purchaseCreatedMessage(p), nil

	case job.TypeSendReport:
		var p job.SendReport
		if err := json.Unmarshal(j.Data, &p); err != nil {
			return telegram.Message{}, decodeErr(j.Type, err)
		}
		return telegram.Message{ChatID: p.ChatID, Text: p.Text, ParseMode: "HTML"}, nil
	}
	return telegram.Message{}, unknownTypeErr(j.Type)
}
