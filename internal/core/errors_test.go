package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestUpstreamError(t *testing.T) {
	cause := errors.New("503 service unavailable")
	err := &UpstreamError{Op: "playlist items", Err: cause}

	if got := err.Error(); got != "catalog playlist items: 503 service unavailable" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("UpstreamError must unwrap to its cause")
	}
	if !IsUpstream(err) {
		t.Error("IsUpstream must match a direct UpstreamError")
	}

	wrapped := fmt.Errorf("album enrichment for playlist pl1: %w", err)
	if !IsUpstream(wrapped) {
		t.Error("IsUpstream must match through wrapping")
	}
}

func TestIsUpstream_OtherErrors(t *testing.T) {
	if IsUpstream(errors.New("plain")) {
		t.Error("plain errors must not classify as upstream")
	}
	if IsUpstream(fmt.Errorf("wrap: %w", ErrMissingDateRow)) {
		t.Error("pipeline sentinels must not classify as upstream")
	}
	if IsUpstream(nil) {
		t.Error("nil must not classify as upstream")
	}
}
