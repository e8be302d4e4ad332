package errorspkg

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs(t *testing.T) {
	t.Parallel()

	root := NewKind(KindAccountNotFound, "account not found")
	sender := New(KindAccountNotFound, "sender account not found")
	other := NewKind(KindInvalidAmount, "invalid amount")

	testCases := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{name: "RootMatchesItself", err: root, target: root, want: true},
		{name: "SpecificMatchesRoot", err: sender, target: root, want: true},
		{name: "RootDoesNotMatchSpecific", err: root, target: sender, want: false},
		{name: "WrappedSpecificMatchesRoot", err: fmt.Errorf("transfer: %w", sender), target: root, want: true},
		{name: "OtherKind", err: sender, target: other, want: false},
		{name: "PlainError", err: errors.New("account not found"), target: root, want: false},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := errors.Is(tc.err, tc.target); got != tc.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tc.err, tc.target, got, tc.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "Tagged", err: New(KindInsufficientFunds, "insufficient funds"), want: KindInsufficientFunds},
		{name: "Wrapped", err: fmt.Errorf("withdraw: %w", NewKind(KindInvalidAmount, "x")), want: KindInvalidAmount},
		{name: "Internal", err: ErrInternal, want: KindStorage},
		{name: "Untagged", err: errors.New("connection reset"), want: KindStorage},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
