package notificator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/pkg/logger"
)

type sentMessage struct {
	chatID  string
	message string
}

type chanSender chan sentMessage

func (s chanSender) SendNotification(ctx context.Context, chatID, message string) error {
	s <- sentMessage{chatID: chatID, message: message}
	return nil
}

type panickingSender struct{}

func (panickingSender) SendNotification(context.Context, string, string) error {
	panic("boom")
}

func TestNotifyOperatorsSendsToAdminChat(t *testing.T) {
	sent := make(chanSender, 1)
	n := NewNotificator(logger.NewNop(), sent, "-100123")

	n.NotifyOperators(context.Background(), "hello")

	select {
	case msg := <-sent:
		if msg.chatID != "-100123" || msg.message != "hello" {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message not sent")
	}
}

func TestNotifyOperatorsWithoutChatIsDropped(t *testing.T) {
	sent := make(chanSender, 1)
	n := NewNotificator(logger.NewNop(), sent, "")

	n.NotifyOperators(context.Background(), "hello")

	select {
	case msg := <-sent:
		t.Fatalf("unexpected message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifyOperatorsRecoversPanics(t *testing.T) {
	n := NewNotificator(logger.NewNop(), panickingSender{}, "1")
	n.NotifyOperators(context.Background(), "hello")
	time.Sleep(20 * time.Millisecond)
}

func TestWithdrawalRequestedMessage(t *testing.T) {
	msg := WithdrawalRequestedMessage(&models.WithdrawalRequest{
		ID:           "w-1",
		ProviderRole: models.RoleDoctor,
		ProviderID:   "doc-1",
		Amount:       decimal.NewFromInt(900),
		Currency:     "INR",
		PayoutMethod: models.PayoutMethod{Type: models.PayoutBank},
	})
	for _, want := range []string{"w-1", "doctor:doc-1", "900.00 INR", "bank"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
