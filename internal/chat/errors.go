package chat

import (
	"errors"
	"fmt"
)

// Error kinds shared by all adapters. Adapters wrap these with fmt.Errorf
// and %w so callers can classify failures with errors.Is.
var (
	// ErrStreamChat is the catch-all for protocol-level failures: unexpected
	// HTTP statuses, missing live chats, fatal listen failures.
	ErrStreamChat = errors.New("stream chat error")

	// ErrPlatformNotSupported means a stream identifier could not be mapped
	// to a known platform, or an explicit platform name is unrecognized.
	ErrPlatformNotSupported = errors.New("platform not supported")

	// ErrAuthentication means a credential was missing or rejected.
	ErrAuthentication = errors.New("authentication failed")

	// ErrConnection means transport establishment failed (DNS, socket, or
	// HTTP failure during setup calls).
	ErrConnection = errors.New("connection failed")

	// ErrStreamNotFound means the target video, channel or chat room does
	// not exist or has no active chat.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrNotConnected reports Listen being called before a successful
	// Connect. It is a StreamChatError.
	ErrNotConnected = fmt.Errorf("%w: not connected, call Connect first", ErrStreamChat)
)
