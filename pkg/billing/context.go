package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// EmailResolver returns the billing email for a user, used when
// initializing gateway transactions.
type EmailResolver func(ctx context.Context, userID uuid.UUID) (string, error)

// ErrEmailNotInContext is returned by the default resolver when no
// billing email was placed in the request context.
var ErrEmailNotInContext = errors.New("billing email not found in context")

type emailCtxKey struct{}

// SetEmailToContext stores the user's billing email in the context.
func SetEmailToContext(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailCtxKey{}, email)
}

// GetEmailFromContext retrieves the billing email from the context.
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailCtxKey{}).(string)
	return email, ok
}

// EmailContextResolver is the default resolver: the HTTP layer puts the
// authenticated user's email in the context during request processing.
func EmailContextResolver(ctx context.Context, _ uuid.UUID) (string, error) {
	email, ok := GetEmailFromContext(ctx)
	if !ok {
		return "", ErrEmailNotInContext
	}
	return email, nil
}
