package firestore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorClassifiesStatus(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		notFound    bool
		unavailable bool
	}{
		{name: "not found", err: status.Error(codes.NotFound, "missing"), notFound: true},
		{name: "unavailable", err: status.Error(codes.Unavailable, "down"), unavailable: true},
		{name: "exhausted", err: status.Error(codes.ResourceExhausted, "quota"), unavailable: true},
		{name: "other", err: status.Error(codes.PermissionDenied, "nope")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var repoErr *Error
			if !errors.As(WrapError("promotions.get", tc.err), &repoErr) {
				t.Fatalf("expected *Error")
			}
			if repoErr.IsNotFound() != tc.notFound || repoErr.IsUnavailable() != tc.unavailable {
				t.Fatalf("unexpected classification %+v", repoErr)
			}
		})
	}
}

func TestWrapErrorPassesContextErrors(t *testing.T) {
	if err := WrapError("op", fmt.Errorf("wrapped: %w", context.Canceled)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", status.Error(codes.Canceled, "cancelled")); err != context.Canceled {
		t.Fatalf("expected context.Canceled from grpc status, got %v", err)
	}
	if WrapError("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
