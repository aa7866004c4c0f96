package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Type tags a job with the handler that consumes it.
type Type string

const (
	TypeOrderStatusChange Type = "order_status_change"
	TypePurchaseCreated   Type = "purchase_created"
	TypeSendReport        Type = "send_report"
)

// Known reports whether t is one of the job kinds the dispatcher handles.
func (t Type) Known() bool {
	switch t {
	case TypeOrderStatusChange, TypePurchaseCreated, TypeSendReport:
		return true
	}
	return false
}

// Job is the envelope stored in the queue. It is immutable once enqueued;
// consumers must tolerate seeing the same envelope more than once.
type Job struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	ExecuteAt time.Time       `json:"executeAt"`
}

// New builds an envelope around payload, due after delay. A zero delay
// makes the job immediately eligible.
func New(t Type, payload any, delay time.Duration) (Job, error) {
	if !t.Known() {
		return Job{}, errors.Errorf("job: unknown type %q", t)
	}
	if delay < 0 {
		delay = 0
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Job{}, errors.Wrap(err, "job: marshal payload")
	}
	now := time.Now().UTC()
	return Job{
		ID:        uuid.NewString(),
		Type:      t,
		Data:      data,
		CreatedAt: now,
		ExecuteAt: now.Add(delay),
	}, nil
}

// Encode serializes the envelope for the queue store.
func (j Job) Encode() ([]byte, error) {
	b, err := json.Marshal(j)
	return b, errors.Wrap(err, "job: encode")
}

// Decode parses a queue member back into an envelope.
func Decode(raw []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return Job{}, errors.Wrap(err, "job: decode")
	}
	return j, nil
}

// Order status codes shared with the order-management side. These are an
// external contract; do not rename or renumber.
const (
	OrderUnpaid     = 0
	OrderPaid       = 1
	OrderProcessing = 2
)

// OrderItem is one line of the order snapshot carried in the payload.
type OrderItem struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

// Order is the snapshot of the order at the moment its status changed.
// The queue carries the snapshot so the dispatcher never reads order rows.
type Order struct {
	ID          int64       `json:"id"`
	Status      int         `json:"status"`
	TotalAmount string      `json:"total_amount"`
	UserID      int64       `json:"user_id"`
	ChatID      int64       `json:"chat_id"`
	Address     string      `json:"address"`
	Items       []OrderItem `json:"order_items"`
}

// OrderStatusChange is the payload for TypeOrderStatusChange.
type OrderStatusChange struct {
	Order          Order `json:"order"`
	PreviousStatus int   `json:"previousStatus"`
}

// Purchase is the snapshot sent to the supplier when a purchase is created.
type Purchase struct {
	ID             int64       `json:"id"`
	SupplierChatID int64       `json:"supplier_chat_id"`
	TotalAmount    string      `json:"total_amount"`
	Items          []OrderItem `json:"items"`
}

// PurchaseCreated is the payload for TypePurchaseCreated.
type PurchaseCreated struct {
	Purchase Purchase `json:"purchase"`
}

// SendReport is the payload for TypeSendReport: pre-rendered report text
// for a known chat.
type SendReport struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}
