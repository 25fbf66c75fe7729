package wallet

import (
	"errors"
	"testing"
	"time"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/models"
)

func TestTransitionTableIsComplete(t *testing.T) {
	allowed := map[[2]models.WithdrawalStatus]bool{
		{models.WithdrawalPending, models.WithdrawalApproved}: true,
		{models.WithdrawalPending, models.WithdrawalRejected}: true,
		{models.WithdrawalPending, models.WithdrawalPaid}:     true,
		{models.WithdrawalApproved, models.WithdrawalPaid}:    true,
	}
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, from := range models.WithdrawalStatuses {
		for _, to := range models.WithdrawalStatuses {
			w := &models.WithdrawalRequest{
				Status:        from,
				StatusHistory: []models.StatusChange{{Status: models.WithdrawalPending}},
			}
			err := applyTransition(w, Transition{
				Status:    to,
				AdminNote: "checked",
				Actor:     models.Identity{ID: "admin-1", Role: models.RoleAdmin},
				At:        at,
			})

			if allowed[[2]models.WithdrawalStatus{from, to}] {
				if err != nil {
					t.Errorf("%s -> %s: unexpected error %v", from, to, err)
					continue
				}
				if w.Status != to {
					t.Errorf("%s -> %s: status = %s", from, to, w.Status)
				}
				if len(w.StatusHistory) != 2 {
					t.Errorf("%s -> %s: history has %d entries, want 2", from, to, len(w.StatusHistory))
				}
				continue
			}

			if !errors.Is(err, apperr.ErrInvalidStateTransition) {
				t.Errorf("%s -> %s: expected invalid transition, got %v", from, to, err)
				continue
			}
			var appErr *apperr.Error
			if errors.As(err, &appErr) && (appErr.Current != string(from) || appErr.Requested != string(to)) {
				t.Errorf("%s -> %s: error carries %s -> %s", from, to, appErr.Current, appErr.Requested)
			}
			if w.Status != from || len(w.StatusHistory) != 1 {
				t.Errorf("%s -> %s: rejected transition mutated the request", from, to)
			}
		}
	}
}

func TestRejectWithoutNoteLeavesRequestUntouched(t *testing.T) {
	w := &models.WithdrawalRequest{Status: models.WithdrawalPending}
	err := applyTransition(w, Transition{Status: models.WithdrawalRejected, AdminNote: "   "})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if w.Status != models.WithdrawalPending || len(w.StatusHistory) != 0 {
		t.Fatalf("request mutated: %+v", w)
	}
}

func TestTerminalStateMessage(t *testing.T) {
	w := &models.WithdrawalRequest{Status: models.WithdrawalPaid}
	err := applyTransition(w, Transition{Status: models.WithdrawalRejected, AdminNote: "late"})
	if got := apperr.MessageOf(err); got != "withdrawal request is paid and can no longer change" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestPaidSetsProcessedFields(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	w := &models.WithdrawalRequest{Status: models.WithdrawalApproved}
	err := applyTransition(w, Transition{
		Status:          models.WithdrawalPaid,
		PayoutReference: " UTR-9 ",
		Actor:           models.Identity{ID: "admin-2", Role: models.RoleAdmin},
		At:              at,
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if w.PayoutReference == nil || *w.PayoutReference != "UTR-9" {
		t.Fatalf("payout reference = %v", w.PayoutReference)
	}
	if w.ProcessedAt == nil || !w.ProcessedAt.Equal(at) || w.ProcessedBy == nil || *w.ProcessedBy != "admin-2" {
		t.Fatalf("processed fields not set: %+v", w)
	}
	if h := w.StatusHistory[len(w.StatusHistory)-1]; h.ActorRole != models.RoleAdmin || !h.Timestamp.Equal(at) {
		t.Fatalf("unexpected history entry %+v", h)
	}
}
