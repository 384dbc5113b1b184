package llm

import "context"

// debugCallbackKey is the type used as a context key for storing debug callbacks.
type debugCallbackKey struct{}

// WithDebugCallback adds a debug callback to the context. Send progress messages are
// delivered to it as plain strings.
func WithDebugCallback(ctx context.Context, cb func(string)) context.Context {
	return context.WithValue(ctx, debugCallbackKey{}, cb)
}

// DebugCallback retrieves the debug callback from the context.
func DebugCallback(ctx context.Context) (func(string), bool) {
	cb, ok := ctx.Value(debugCallbackKey{}).(func(string))
	return cb, ok && cb != nil
}

// Debug sends msg to the context's debug callback, if any.
func Debug(ctx context.Context, msg string) {
	if cb, ok := DebugCallback(ctx); ok {
		cb(msg)
	}
}
