package job

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	payload := OrderStatusChange{
		Order:          Order{ID: 42, Status: OrderPaid, ChatID: 100, TotalAmount: "1500.00"},
		PreviousStatus: OrderUnpaid,
	}

	j, err := New(TypeOrderStatusChange, payload, 0)
	require.NoError(t, err)

	assert.NotEmpty(t, j.ID)
	assert.Equal(t, TypeOrderStatusChange, j.Type)
	assert.False(t, j.ExecuteAt.Before(j.CreatedAt), "ExecuteAt must not precede CreatedAt")

	var decoded OrderStatusChange
	require.NoError(t, json.Unmarshal(j.Data, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewDelay(t *testing.T) {
	j, err := New(TypeSendReport, SendReport{ChatID: 1, Text: "daily"}, 90*time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 90, j.ExecuteAt.Sub(j.CreatedAt).Seconds(), 1)

	// Negative delay clamps to immediate.
	j, err = New(TypeSendReport, SendReport{ChatID: 1, Text: "daily"}, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, j.CreatedAt, j.ExecuteAt)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(Type("order_deleted"), nil, 0)
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	j, err := New(TypeOrderStatusChange, OrderStatusChange{
		Order: Order{
			ID:          7,
			Status:      OrderProcessing,
			TotalAmount: "249.90",
			UserID:      3,
			ChatID:      555,
			Address:     "Москва, Тверская 1",
			Items:       []OrderItem{{ProductName: "Атомоксетин", Quantity: 2, Price: "120.00"}},
		},
		PreviousStatus: OrderPaid,
	}, 30*time.Second)
	require.NoError(t, err)

	raw, err := j.Encode()
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, j.Type, got.Type)
	assert.JSONEq(t, string(j.Data), string(got.Data))
	assert.True(t, j.ExecuteAt.Equal(got.ExecuteAt), "ExecuteAt must survive the round trip")
	assert.Equal(t, j.ID, got.ID)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	require.Error(t, err)
}
