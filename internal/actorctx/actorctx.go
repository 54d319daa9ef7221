package actorctx

import "context"

type ctxKey string

const (
	keyEmail ctxKey = "actor_email"
	keyName  ctxKey = "actor_name"
)

func WithIdentity(ctx context.Context, email, name string) context.Context {
	ctx = context.WithValue(ctx, keyEmail, email)
	return context.WithValue(ctx, keyName, name)
}

func EmailFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyEmail).(string)

	return v, ok && v != ""
}

func NameFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyName).(string)

	return v, ok && v != ""
}
