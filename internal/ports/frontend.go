package ports

import "context"

// ChatFrontend is a transport that feeds customer messages into the chat
// service: the HTTP widget API or the interactive CLI.
type ChatFrontend interface {
	// Start begins accepting messages. Blocks until Stop or a fatal error.
	Start() error

	// Stop shuts the frontend down gracefully
	Stop(ctx context.Context) error
}
