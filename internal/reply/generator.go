// Package reply defines the contract with the external text-generation
// collaborator that produces bot persona replies, plus an HTTP client
// implementation of it.
//
// The generator is consumed as an opaque function: given a chat id and
// the latest human message, it returns reply text. Callers must treat it
// as slow and unreliable — every call is bounded by a timeout and a
// failure never aborts the operation that triggered it.
package reply

import "context"

// Generator produces a bot reply for a conversation. Implementations
// must honor ctx cancellation and deadlines.
type Generator interface {
	// GenerateReply returns the bot's reply to lastHumanText within the
	// conversation identified by chatID.
	GenerateReply(ctx context.Context, chatID, lastHumanText string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, chatID, lastHumanText string) (string, error)

// GenerateReply implements Generator.
func (f GeneratorFunc) GenerateReply(ctx context.Context, chatID, lastHumanText string) (string, error) {
	return f(ctx, chatID, lastHumanText)
}
