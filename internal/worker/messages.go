package worker

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/osama-agency/telesklad-sub006/internal/job"
	"github.com/osama-agency/telesklad-sub006/internal/telegram"
)

func decodeErr(t job.Type, err error) error {
	return errors.Wrapf(err, "decode %s payload", t)
}

func unknownTypeErr(t job.Type) error {
	return errors.Errorf("unknown job type %q", t)
}

func statusLabel(status int) string {
	switch status {
	case job.OrderUnpaid:
		return "ожидает оплаты"
	case job.OrderPaid:
		return "оплачен"
	case job.OrderProcessing:
		return "в обработке"
	}
	return fmt.Sprintf("статус %d", status)
}

// orderStatusMessage renders the customer-facing text for an order status
// transition.
func orderStatusMessage(p job.OrderStatusChange) telegram.Message {
	o := p.Order

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Заказ №%d</b>\n", o.ID)
	fmt.Fprintf(&b, "Статус: %s → <b>%s</b>\n", statusLabel(p.PreviousStatus), statusLabel(o.Status))
	if len(o.Items) > 0 {
		b.WriteString("\n")
		for _, it := range o.Items {
			fmt.Fprintf(&b, "• %s × %d — %s\n", it.ProductName, it.Quantity, it.Price)
		}
	}
	fmt.Fprintf(&b, "\nСумма: %s", o.TotalAmount)
	if o.Status == job.OrderProcessing && o.Address != "" {
		fmt.Fprintf(&b, "\nАдрес доставки: %s", o.Address)
	}

	return telegram.Message{ChatID: o.ChatID, Text: b.String(), ParseMode: "HTML"}
}

// purchaseCreatedMessage renders the supplier notification with the inline
// payment confirmation button.
func purchaseCreatedMessage(p job.PurchaseCreated) telegram.Message {
	pu := p.Purchase

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Закупка №%d</b>\n", pu.ID)
	for _, it := range pu.Items {
		fmt.Fprintf(&b, "• %s × %d\n", it.ProductName, it.Quantity)
	}
	fmt.Fprintf(&b, "\nСумма: %s", pu.TotalAmount)

	return telegram.Message{
		ChatID:    pu.SupplierChatID,
		Text:      b.String(),
		ParseMode: "HTML",
		ReplyMarkup: &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{{
				{Text: "Я оплатил", CallbackData: fmt.Sprintf("i_paid:%d", pu.ID)},
			}},
		},
	}
}
