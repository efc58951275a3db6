package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/asala-storefront/pkg/enums"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
	"github.com/angelmondragon/asala-storefront/pkg/metrics"
	"github.com/angelmondragon/asala-storefront/pkg/telegram"
	"github.com/sony/gobreaker/v2"
)

// Sender delivers a composed order. The outcome is a plain boolean.
type Sender interface {
	SendOrder(ctx context.Context, payload Payload) bool
}

// MessageClient is the subset of the Telegram client the sender needs.
type MessageClient interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
}

// BreakerSettings enables fail-fast after consecutive delivery failures.
type BreakerSettings struct {
	Failures    uint32
	CoolDown    time.Duration
	HalfOpenMax uint32
}

// SenderOption configures a TelegramSender.
type SenderOption func(*TelegramSender)

// WithLogger sets the logger used for delivery outcomes.
func WithLogger(logg *logger.Logger) SenderOption {
	return func(s *TelegramSender) {
		if logg != nil {
			s.logg = logg
		}
	}
}

// WithMetrics records each attempt.
func WithMetrics(m *metrics.OrderMetrics) SenderOption {
	return func(s *TelegramSender) {
		s.metrics = m
	}
}

// WithBreaker puts a circuit breaker in front of the client. Zero failures
// leaves it disabled.
func WithBreaker(settings BreakerSettings) SenderOption {
	return func(s *TelegramSender) {
		if settings.Failures == 0 {
			return
		}
		halfOpen := settings.HalfOpenMax
		if halfOpen == 0 {
			halfOpen = 1
		}
		s.breaker = gobreaker.NewCircuitBreaker[*telegram.Message](gobreaker.Settings{
			Name:        "telegram",
			MaxRequests: halfOpen,
			Timeout:     settings.CoolDown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.Failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				ctx := s.logg.WithFields(context.Background(), map[string]any{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
				s.logg.Warn(ctx, "order delivery breaker state changed")
			},
		})
	}
}

// TelegramSender posts orders to one chat through the Bot API.
type TelegramSender struct {
	client  MessageClient
	chatID  string
	breaker *gobreaker.CircuitBreaker[*telegram.Message]
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewTelegramSender(client MessageClient, chatID string, opts ...SenderOption) (*TelegramSender, error) {
	if client == nil {
		return nil, errors.New("telegram client is required")
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, errors.New("telegram chat id is required")
	}
	s := &TelegramSender{
		client: client,
		chatID: chatID,
		logg:   logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// SendOrder issues exactly one sendMessage request. Any failure, including a
// non-2xx status, yields false; nothing is retried.
func (s *TelegramSender) SendOrder(ctx context.Context, payload Payload) bool {
	start := s.now()
	failure, err := s.deliver(ctx, payload)
	took := s.now().Sub(start)

	s.metrics.ObserveDelivery(failure.Outcome(), took)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outcome":     failure.Outcome(),
		"duration_ms": took.Milliseconds(),
	})
	if failure != enums.DeliveryFailureNone {
		s.logg.Error(logCtx, "order delivery failed", err)
		return false
	}
	s.logg.Info(logCtx, "order delivered")
	return true
}

func (s *TelegramSender) deliver(ctx context.Context, payload Payload) (enums.DeliveryFailure, error) {
	req := telegram.SendMessageRequest{
		ChatID:    s.chatID,
		Text:      payload.Text,
		ParseMode: payload.ParseMode,
	}

	send := func() (*telegram.Message, error) {
		return s.client.SendMessage(ctx, req)
	}

	var err error
	if s.breaker != nil {
		_, err = s.breaker.Execute(send)
	} else {
		_, err = send()
	}
	return classify(err), err
}

func classify(err error) enums.DeliveryFailure {
	switch {
	case err == nil:
		return enums.DeliveryFailureNone
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return enums.DeliveryFailureBreakerOpen
	case telegram.IsRejected(err):
		return enums.DeliveryFailureRejected
	default:
		return enums.DeliveryFailureNetwork
	}
}
