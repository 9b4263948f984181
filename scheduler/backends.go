package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/remindwise/plugin/push"
	"github.com/hrygo/remindwise/plugin/telegram"
)

// PushBackend adapts the primary push-notification API client to the
// dispatch chain. It supports both immediate and vendor-scheduled sends.
type PushBackend struct {
	client *push.Client
	clock  func() time.Time
}

func NewPushBackend(client *push.Client) *PushBackend {
	return &PushBackend{client: client, clock: time.Now}
}

func (b *PushBackend) Name() string {
	return "push_api"
}

func (b *PushBackend) Deliver(ctx context.Context, attempt *DeliveryAttempt) (*Receipt, error) {
	payload := &push.Payload{
		Title:    attempt.Task.Title,
		Body:     attempt.Message,
		Priority: pushPriority(attempt.Tier),
		Data: map[string]string{
			"taskUid": attempt.Task.UID,
			"tier":    string(attempt.Tier),
		},
	}

	var resp *push.Response
	var err error
	if attempt.FireAt.After(b.clock()) {
		resp, err = b.client.ScheduleAt(ctx, attempt.Task.CreatorID, payload, attempt.FireAt)
	} else {
		resp, err = b.client.Send(ctx, attempt.Task.CreatorID, payload)
	}
	if err != nil {
		return nil, err
	}
	return &Receipt{DeliveryID: resp.DeliveryID, Backend: b.Name()}, nil
}

// CancelScheduled revokes a vendor-scheduled send.
func (b *PushBackend) CancelScheduled(ctx context.Context, deliveryID string) error {
	return b.client.CancelScheduled(ctx, deliveryID)
}

func pushPriority(tier UrgencyTier) string {
	if tier == TierUrgent {
		return "high"
	}
	return "normal"
}

// ChatResolver maps an internal user id to the user's Telegram chat.
type ChatResolver func(ctx context.Context, userID int32) (int64, error)

// TelegramBackend adapts the legacy Telegram notifier. It only handles
// immediate sends; attempts with a future fire time fall through to the next
// chain element.
type TelegramBackend struct {
	notifier *telegram.Notifier
	resolve  ChatResolver
	clock    func() time.Time
}

func NewTelegramBackend(notifier *telegram.Notifier, resolve ChatResolver) *TelegramBackend {
	return &TelegramBackend{notifier: notifier, resolve: resolve, clock: time.Now}
}

func (b *TelegramBackend) Name() string {
	return "telegram"
}

func (b *TelegramBackend) Deliver(ctx context.Context, attempt *DeliveryAttempt) (*Receipt, error) {
	// A small grace window so attempts computed a moment ago still count as
	// immediate.
	if attempt.FireAt.Sub(b.clock()) > time.Minute {
		return nil, ErrScheduleUnsupported
	}

	chatID, err := b.resolve(ctx, attempt.Task.CreatorID)
	if err != nil {
		return nil, err
	}
	if err := b.notifier.Send(ctx, chatID, attempt.Task.Title, attempt.Message); err != nil {
		return nil, err
	}
	// The Bot API has no delivery identifier; synthesize one for the logs.
	return &Receipt{DeliveryID: "tg-" + uuid.NewString(), Backend: b.Name()}, nil
}
