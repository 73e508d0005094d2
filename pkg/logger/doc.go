// Package logger builds the *slog.Logger used across socialauth and provides
// attribute helpers so that keys such as "user_id", "provider" and "session_id"
// are spelled the same way in every component.
//
// New returns a logger configured through functional options. Context
// extractors registered with WithContextValue or WithContextExtractors are
// evaluated on each record, so request-scoped values (client IP, request id)
// reach the output without threading them through every call.
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "socialauth"),
//	    logger.WithContextValue("ip", ipKey{}),
//	)
//	log.InfoContext(ctx, "social login",
//	    logger.Provider("google"),
//	    logger.UserID(user.ID),
//	)
package logger
