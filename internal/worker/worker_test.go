package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	r "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osama-agency/telesklad-sub006/internal/job"
	"github.com/osama-agency/telesklad-sub006/internal/queue"
	"github.com/osama-agency/telesklad-sub006/internal/telegram"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []telegram.Message
	err   error
	nexID int64
}

func (f *fakeSender) SendMessage(_ context.Context, _ telegram.Bot, msg telegram.Message) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, msg)
	f.nexID++
	return f.nexID, nil
}

func (f *fakeSender) messages() []telegram.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]telegram.Message(nil), f.sent...)
}

func newTestDispatcher(t *testing.T, sender Sender) (*Dispatcher, *queue.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := r.NewClient(&r.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := queue.NewStore(rdb)
	return NewDispatcher(store, sender, nil, DefaultConfig()), store
}

func enqueue(t *testing.T, store *queue.Store, q string, typ job.Type, payload any, executeAt time.Time) job.Job {
	t.Helper()
	j, err := job.New(typ, payload, 0)
	require.NoError(t, err)
	j.ExecuteAt = executeAt
	require.NoError(t, store.Add(context.Background(), q, j))
	return j
}

func TestDispatchOrderStatusChange(t *testing.T) {
	sender := &fakeSender{}
	d, store := newTestDispatcher(t, sender)
	ctx := context.Background()
	now := time.Now().UTC()
	d.now = func() time.Time { return now }

	enqueue(t, store, queue.Notifications, job.TypeOrderStatusChange, job.OrderStatusChange{
		Order: job.Order{
			ID:          314,
			Status:      job.OrderPaid,
			TotalAmount: "990.00",
			ChatID:      777,
			Items:       []job.OrderItem{{ProductName: "Страттера", Quantity: 1, Price: "990.00"}},
		},
		PreviousStatus: job.OrderUnpaid,
	}, now.Add(-time.Second))

	d.Tick(ctx)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.EqualValues(t, 777, msgs[0].ChatID)
	assert.NotEmpty(t, msgs[0].Text)
	assert.Contains(t, msgs[0].Text, "314")
	assert.Contains(t, msgs[0].Text, "оплачен")
	assert.Equal(t, "HTML", msgs[0].ParseMode)
}

func TestSendFailureDropsJob(t *testing.T) {
	sender := &fakeSender{err: &telegram.APIError{StatusCode: 401, Description: "Unauthorized"}}
	d, store := newTestDispatcher(t, sender)
	ctx := context.Background()
	now := time.Now().UTC()
	d.now = func() time.Time { return now }

	enqueue(t, store, queue.Notifications, job.TypeOrderStatusChange, job.OrderStatusChange{
		Order: job.Order{ID: 1, Status: job.OrderPaid, ChatID: 5},
	}, now.Add(-time.Second))

	d.Tick(ctx)

	// Failed send: the job left the queue and is never retried.
	depth, err := store.Depth(ctx, queue.Notifications)
	require.NoError(t, err)
	assert.Zero(t, depth)

	sender.err = nil
	d.Tick(ctx)
	assert.Empty(t, sender.messages())
}

func TestNoEarlyDelivery(t *testing.T) {
	sender := &fakeSender{}
	d, store := newTestDispatcher(t, sender)
	ctx := context.Background()
	now := time.Now().UTC()
	d.now = func() time.Time { return now }

	enqueue(t, store, queue.Notifications, job.TypeSendReport,
		job.SendReport{ChatID: 2, Text: "later"}, now.Add(time.Hour))

	d.Tick(ctx)
	assert.Empty(t, sender.messages())

	d.now = func() time.Time { return now.Add(2 * time.Hour) }
	d.Tick(ctx)
	assert.Len(t, sender.messages(), 1)
}

func TestEarlierJobFirst(t *testing.T) {
	sender := &fakeSender{}
	d, store := newTestDispatcher(t, sender)
	ctx := context.Background()
	now := time.Now().UTC()
	d.now = func() time.Time { return now }

	enqueue(t, store, queue.Reports, job.TypeSendReport,
		job.SendReport{ChatID: 1, Text: "second"}, now.Add(-10*time.Second))
	enqueue(t, store, queue.Reports, job.TypeSendReport,
		job.SendReport{ChatID: 1, Text: "first"}, now.Add(-20*time.Second))

	d.Tick(ctx)

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
}

func TestUnknownTypeDropped(t *testing.T) {
	sender := &fakeSender{}
	d, store := newTestDispatcher(t, sender)
	ctx := context.Background()
	now := time.Now().UTC()
	d.now = func() time.Time { return now }

	// Bypass job.New validation to simulate a producer running newer code.
	j, err := job.New(job.TypeSendReport, job.SendReport{ChatID: 1, Text: "x"}, 0)
	require.NoError(t, err)
	j.Type = job.Type("loyalty_tier_change")
	j.ExecuteAt = now.Add(-time.Second)
	require.NoError(t, store.Add(ctx, queue.Notifications, j))

	d.Tick(ctx)

	assert.Empty(t, sender.messages())
	depth, err := store.Depth(ctx, queue.Notifications)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestPurchaseMessageHasPaymentButton(t *testing.T) {
	sender := &fakeSender{}
	d, store := newTestDispatcher(t, sender)
	ctx := context.Background()
	now := time.Now().UTC()
	d.now = func() time.Time { return now }

	enqueue(t, store, queue.Notifications, job.TypePurchaseCreated, job.PurchaseCreated{
		Purchase: job.Purchase{ID: 88, SupplierChatID: 42, TotalAmount: "5000.00"},
	}, now.Add(-time.Second))

	d.Tick(ctx)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].ReplyMarkup)
	require.Len(t, msgs[0].ReplyMarkup.InlineKeyboard, 1)
	assert.Equal(t, "i_paid:88", msgs[0].ReplyMarkup.InlineKeyboard[0][0].CallbackData)
}
