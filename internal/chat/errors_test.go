package chat

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotConnectedIsStreamChatError(t *testing.T) {
	if !errors.Is(ErrNotConnected, ErrStreamChat) {
		t.Error("ErrNotConnected should classify as ErrStreamChat")
	}
}

func TestWrappedErrorsClassify(t *testing.T) {
	err := fmt.Errorf("%w: channel %q", ErrStreamNotFound, "nobody")
	if !errors.Is(err, ErrStreamNotFound) {
		t.Error("wrapped error lost its kind")
	}
	if errors.Is(err, ErrAuthentication) {
		t.Error("wrapped error matched the wrong kind")
	}
}
