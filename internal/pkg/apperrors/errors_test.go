package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusFor(t *testing.T) {
	cases := map[ErrorType]int{
		ErrRateLimit:       http.StatusTooManyRequests,
		ErrSafety:          http.StatusBadRequest,
		ErrInvalidArgs:     http.StatusBadRequest,
		ErrUnknownTool:     http.StatusBadRequest,
		ErrAuthFailed:      http.StatusUnauthorized,
		ErrReadOnly:        http.StatusForbidden,
		ErrNotFound:        http.StatusNotFound,
		ErrUpstream:        http.StatusBadGateway,
		ErrDataContract:    http.StatusBadGateway,
		ErrUpstreamTimeout: http.StatusGatewayTimeout,
		ErrToolTimeout:     http.StatusGatewayTimeout,
		ErrStreamDown:      http.StatusServiceUnavailable,
		ErrInternal:        http.StatusInternalServerError,
	}
	for typ, want := range cases {
		if got := StatusFor(typ); got != want {
			t.Fatalf("StatusFor(%s) = %d, want %d", typ, got, want)
		}
	}
}

func TestWrapPreservesAppError(t *testing.T) {
	orig := NewSafety("order_too_large", "too big")
	wrapped := Wrap(fmt.Errorf("dispatch: %w", orig))
	if wrapped != orig {
		t.Fatalf("expected the original AppError back, got %+v", wrapped)
	}

	plain := Wrap(errors.New("boom"))
	if plain.Type != ErrInternal {
		t.Fatalf("plain errors wrap to INTERNAL_ERROR, got %s", plain.Type)
	}
}
