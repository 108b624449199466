package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const defaultQueueSize = 64

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts order events to a kitchen chat. Notify only enqueues;
// Run delivers.
type Telegram struct {
	api    Sender
	chatID int64
	queue  chan Event
	log    *zap.Logger
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewTelegramWithSender(api, chatID, defaultQueueSize, log), nil
}

func NewTelegramWithSender(api Sender, chatID int64, queueSize int, log *zap.Logger) *Telegram {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Telegram{
		api:    api,
		chatID: chatID,
		queue:  make(chan Event, queueSize),
		log:    log,
	}
}

// Notify enqueues e, dropping it when the queue is full.
func (t *Telegram) Notify(_ context.Context, e Event) {
	select {
	case t.queue <- e:
	default:
		t.log.Warn("telegram queue full, dropping event",
			zap.String("event", e.Type), zap.String("order", e.Order.Number))
	}
}

// Run sends queued events until ctx is done.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-t.queue:
			msg := tgbotapi.NewMessage(t.chatID, FormatMessage(e))
			if _, err := t.api.Send(msg); err != nil {
				t.log.Error("telegram send failed",
					zap.String("event", e.Type), zap.String("order", e.Order.Number), zap.Error(err))
			}
		}
	}
}

// FormatMessage renders e as plain text for the kitchen chat.
func FormatMessage(e Event) string {
	o := e.Order
	var b strings.Builder
	switch e.Type {
	case EventOrderCreated:
		fmt.Fprintf(&b, "New order %s\n", o.Number)
	case EventOrderStatusChanged:
		fmt.Fprintf(&b, "Order %s: %s -> %s\n", o.Number, e.PreviousStatus, o.Status)
	default:
		fmt.Fprintf(&b, "%s %s\n", e.Type, o.Number)
	}
	fmt.Fprintf(&b, "Type: %s x%d\n", o.Type, o.Qty)
	fmt.Fprintf(&b, "Total: Rs %s (food %s + delivery %s)\n",
		o.Total().StringFixed(0), o.Amount.StringFixed(0), o.DeliveryFee.StringFixed(0))
	fmt.Fprintf(&b, "Mobile: %s\n", o.Mobile)
	if o.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", o.Note)
	}
	fmt.Fprintf(&b, "Status: %s", o.Status)
	return b.String()
}
