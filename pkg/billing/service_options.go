package billing

import "log/slog"

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithClock sets the clock used for all time-driven transitions.
// Defaults to RealClock.
func WithClock(c Clock) ServiceOption {
	return func(s *service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPublisher sets the domain event publisher for the notification
// boundary. Defaults to NopPublisher.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithEmailResolver sets a custom billing email resolver. The default
// (EmailContextResolver) expects the email in the request context; use
// this to resolve emails from a user store instead.
func WithEmailResolver(r EmailResolver) ServiceOption {
	return func(s *service) {
		if r != nil {
			s.emailResolver = r
		}
	}
}

// WithCallbackURL sets the URL the gateway redirects to after payment.
func WithCallbackURL(url string) ServiceOption {
	return func(s *service) {
		s.callbackURL = url
	}
}
