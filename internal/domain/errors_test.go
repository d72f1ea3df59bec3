package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_SingleField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("sponsee_index", "required")

	if got := err.Error(); got != "validation: sponsee_index: required" {
		t.Fatalf("unexpected Error(): %q", got)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("errors.Is(err, ErrValidation) = false")
	}
}

func TestValidationError_MultipleFields(t *testing.T) {
	t.Parallel()

	err := NewValidationErrors([]FieldError{
		{Field: "date_scanned", Message: "required while status is scanned"},
		{Field: "sponsee_code", Message: "required"},
	})

	if got := err.Error(); got != "validation: 2 errors" {
		t.Fatalf("unexpected Error(): %q", got)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("errors.Is(err, ErrValidation) = false")
	}
	if len(err.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(err.Errors))
	}
}

func TestImmutableFieldError(t *testing.T) {
	t.Parallel()

	var err error = &ImmutableFieldError{Field: FieldCreatedAt}
	if !errors.Is(err, ErrImmutableField) {
		t.Fatal("errors.Is(err, ErrImmutableField) = false")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("immutable field error must not match ErrValidation")
	}
}

func TestTransitionError_Unwrap(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("apply: %w", &TransitionError{LetterID: 7, From: StatusScanned, To: StatusResponded, Precondition: "no transition"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatal("errors.Is(err, ErrInvalidTransition) = false")
	}

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatal("errors.As(err, *TransitionError) = false")
	}
	if te.LetterID != 7 || te.From != StatusScanned {
		t.Fatalf("unexpected transition error: %+v", te)
	}
}

func TestPersistenceError(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk I/O error")
	err := NewPersistenceError("append audit", cause)

	if !errors.Is(err, ErrPersistence) {
		t.Fatal("errors.Is(err, ErrPersistence) = false")
	}
	if !errors.Is(err, cause) {
		t.Fatal("persistence error must unwrap to its cause")
	}
}

func TestNewPersistenceError_KeepsDomainErrors(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("letter 3: %w", ErrNotFound)
	if got := NewPersistenceError("get", notFound); got != notFound {
		t.Fatalf("domain error was rewrapped: %v", got)
	}
	if NewPersistenceError("noop", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrValidation,
		ErrUnauthorized, ErrForbidden, ErrConflict,
		ErrImmutableField, ErrInvalidTransition, ErrPersistence,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel errors %d and %d should not match", i, j)
			}
		}
	}
}
