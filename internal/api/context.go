package api

import (
	"context"

	"github.com/org/memberauth/internal/auth"
)

type contextKey string

const (
	ctxKeyPrincipal     contextKey = "principal"
	ctxKeyBearerToken   contextKey = "bearer_token"
	ctxKeyTransactionID contextKey = "transaction_id"
)

func withPrincipal(ctx context.Context, p *auth.Principal, token string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyPrincipal, p)
	return context.WithValue(ctx, ctxKeyBearerToken, token)
}

func principalFromCtx(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(ctxKeyPrincipal).(*auth.Principal)
	return p
}

// bearerTokenFromCtx returns the raw token the principal authenticated with.
func bearerTokenFromCtx(ctx context.Context) string {
	t, _ := ctx.Value(ctxKeyBearerToken).(string)
	return t
}

func withTransactionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyTransactionID, id)
}

func transactionIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyTransactionID).(string)
	return id
}
