package fetcher

import "context"

type messageKey struct{}

// WithMessage attaches the chat message a URL arrived in. Extractors that
// can use a share caption read it back with MessageFromContext.
func WithMessage(ctx context.Context, text string) context.Context {
	return context.WithValue(ctx, messageKey{}, text)
}

func MessageFromContext(ctx context.Context) string {
	text, _ := ctx.Value(messageKey{}).(string)
	return text
}
