package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrInvalidCredentials, ErrDenied, ErrDuplicateIdentity,
		ErrAuditUnavailable, ErrStoreUnavailable, ErrNotFound,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v matches %v, callers could not tell them apart", a, b)
			}
		}
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: %v", ErrStoreUnavailable, errors.New("connection refused"))
	if !errors.Is(wrapped, ErrStoreUnavailable) {
		t.Fatal("wrapped sentinel not matched by errors.Is")
	}
	if errors.Is(wrapped, ErrDenied) {
		t.Fatal("wrapped sentinel matched the wrong kind")
	}
}
