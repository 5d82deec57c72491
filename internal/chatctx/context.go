package chatctx

import "context"

type ctxKey string

const (
	keyRID    ctxKey = "chat_rid"
	keyConvID ctxKey = "chat_conv_id"
)

// WithRID stores the correlation id for chat-turn logs.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns the correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithConversationID stores the conversation id for chat-turn logs.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyConvID, id)
}

// ConversationID returns the conversation id if present.
func ConversationID(ctx context.Context) string {
	v, _ := ctx.Value(keyConvID).(string)
	return v
}
