package auth

import "context"

// SetClaimsForTest injects match claims into the context for testing purposes.
func SetClaimsForTest(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
