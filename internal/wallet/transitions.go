package wallet

import (
	"fmt"
	"strings"
	"time"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/models"
)

// allowedTransitions is the withdrawal lifecycle. Terminal statuses have no entry.
var allowedTransitions = map[models.WithdrawalStatus][]models.WithdrawalStatus{
	models.WithdrawalPending:  {models.WithdrawalApproved, models.WithdrawalRejected, models.WithdrawalPaid},
	models.WithdrawalApproved: {models.WithdrawalPaid},
}

// CanTransition reports whether from -> to is in the lifecycle.
func CanTransition(from, to models.WithdrawalStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition is an operator's request to move a withdrawal.
type Transition struct {
	Status          models.WithdrawalStatus
	AdminNote       string
	PayoutReference string
	Actor           models.Identity
	At              time.Time
}

// applyTransition validates t against w's current status and applies it, appending
// exactly one history entry. w is left untouched on error.
func applyTransition(w *models.WithdrawalRequest, t Transition) error {
	from, to := w.Status, t.Status

	switch {
	case from == to:
		return apperr.InvalidStateTransition(string(from), string(to),
			fmt.Sprintf("withdrawal request is already %s", from))
	case from.IsTerminal():
		return apperr.InvalidStateTransition(string(from), string(to),
			fmt.Sprintf("withdrawal request is %s and can no longer change", from))
	case !CanTransition(from, to):
		return apperr.InvalidStateTransition(string(from), string(to),
			fmt.Sprintf("cannot move a withdrawal request from %s to %s", from, to))
	}

	note := strings.TrimSpace(t.AdminNote)
	if to == models.WithdrawalRejected && note == "" {
		return apperr.Validation("adminNote is required when rejecting a request")
	}

	w.Status = to
	if note != "" {
		w.AdminNote = note
	}
	if ref := strings.TrimSpace(t.PayoutReference); to == models.WithdrawalPaid && ref != "" {
		w.PayoutReference = &ref
	}
	if to.IsTerminal() {
		at, by := t.At, t.Actor.ID
		w.ProcessedAt = &at
		w.ProcessedBy = &by
	}
	w.StatusHistory = append(w.StatusHistory, models.StatusChange{
		Status:    to,
		Actor:     t.Actor.ID,
		ActorRole: t.Actor.Role,
		Note:      note,
		Timestamp: t.At,
	})
	w.UpdatedAt = t.At
	return nil
}
