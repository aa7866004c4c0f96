package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a setting key or purchase id does not exist.
var ErrNotFound = errors.New("storage: not found")

// PaymentClickLimit is the hard ceiling on "I paid" button presses per
// purchase. Checked before increment, so the stored counter never exceeds it.
const PaymentClickLimit = 3

type Store struct{ db *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{db} }

// Setting returns the value stored under key.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, `select value from settings where key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errors.Wrapf(ErrNotFound, "setting %q", key)
	}
	return value, errors.Wrapf(err, "storage: setting %q", key)
}

// ClickResult is the outcome of one payment-button press.
type ClickResult struct {
	ClickCount   int  `json:"clickCount"`
	LimitReached bool `json:"limitReached"`
}

// RegisterPaymentClick counts one press of the purchase's payment button.
// The limit check happens before the increment: once the counter is at
// PaymentClickLimit further presses report LimitReached without writing.
func (s *Store) RegisterPaymentClick(ctx context.Context, purchaseID int64) (ClickResult, error) {
	var clicks int
	err := s.db.QueryRow(ctx, `
update purchases
   set paymentbuttonclicks = paymentbuttonclicks + 1,
       updated_at = now()
 where id = $1
   and paymentbuttonclicks < $2
returning paymentbuttonclicks`, purchaseID, PaymentClickLimit).Scan(&clicks)
	if err == nil {
		return ClickResult{ClickCount: clicks, LimitReached: clicks >= PaymentClickLimit}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ClickResult{}, errors.Wrapf(err, "storage: click purchase %d", purchaseID)
	}

	// No row updated: either the purchase is unknown or the ceiling was hit.
	clicks, err = s.PaymentClicks(ctx, purchaseID)
	if err != nil {
		return ClickResult{}, err
	}
	return ClickResult{ClickCount: clicks, LimitReached: true}, nil
}

// PaymentClicks reads the current counter without touching it.
func (s *Store) PaymentClicks(ctx context.Context, purchaseID int64) (int, error) {
	var clicks int
	err := s.db.QueryRow(ctx,
		`select paymentbuttonclicks from purchases where id = $1`, purchaseID).Scan(&clicks)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.Wrapf(ErrNotFound, "purchase %d", purchaseID)
	}
	return clicks, errors.Wrapf(err, "storage: clicks for purchase %d", purchaseID)
}
