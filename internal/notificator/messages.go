package notificator

import (
	"fmt"

	"github.com/carelink/carewallet/internal/models"
)

func WithdrawalRequestedMessage(w *models.WithdrawalRequest) string {
	return fmt.Sprintf("New withdrawal request %s\nProvider: %s\nAmount: %s %s\nMethod: %s",
		w.ID, w.Provider(), w.Amount.StringFixed(2), w.Currency, w.PayoutMethod.Type)
}

func SignatureFailureMessage(sub *models.Subscription, paymentID string) string {
	return fmt.Sprintf("Payment signature rejected\nSubscription: %s\nSubscriber: %s\nOrder: %s\nPayment: %s",
		sub.ID, sub.Subscriber(), sub.OrderID, paymentID)
}
