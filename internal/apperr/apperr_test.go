package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("failed to create withdrawal: %w", InsufficientBalance("Requested amount exceeds available balance"))
	if got := KindOf(err); got != KindInsufficientBalance {
		t.Fatalf("expected %s, got %s", KindInsufficientBalance, got)
	}
	if got := MessageOf(err); got != "Requested amount exceeds available balance" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestIsMatchesSentinelByKind(t *testing.T) {
	err := InvalidStateTransition("paid", "approved", "request is already paid")
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected errors.Is to match the sentinel")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("did not expect a validation match")
	}
}

func TestUnknownErrorsAreInternal(t *testing.T) {
	err := errors.New("connection reset")
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal kind")
	}
	if MessageOf(err) != "internal server error" {
		t.Fatalf("raw error text must not leak, got %q", MessageOf(err))
	}
}
