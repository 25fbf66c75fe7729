package notificator

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/pkg/logger"
)

const sendTimeout = 10 * time.Second

// Sender delivers one message to one chat.
type Sender interface {
	SendNotification(ctx context.Context, chatID, message string) error
}

// Notificator forwards operator alerts to the admin chat without blocking the caller.
type Notificator struct {
	logger *logger.Logger
	sender Sender
	chatID string
}

var _ models.OperatorNotifier = (*Notificator)(nil)

func NewNotificator(logger *logger.Logger, sender Sender, chatID string) *Notificator {
	return &Notificator{logger: logger.Named("notificator"), sender: sender, chatID: chatID}
}

// safeCall runs a function with panic recovery
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Errorw("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// NotifyOperators sends message in the background. The caller's context only
// contributes its values; the send outlives the request.
func (n *Notificator) NotifyOperators(ctx context.Context, message string) {
	if n.sender == nil || n.chatID == "" {
		return
	}
	go n.safeCall(func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		if err := n.sender.SendNotification(sendCtx, n.chatID, message); err != nil {
			n.logger.Errorw("Failed to send operator alert", "error", err)
		}
	}, "operatorAlert")
}

// Noop drops every alert.
type Noop struct{}

func (Noop) NotifyOperators(context.Context, string) {}
