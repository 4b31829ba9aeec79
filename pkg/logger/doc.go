// Package logger builds configured slog.Logger instances for the
// authentication core.
//
// A factory function assembles a JSON or text handler, static service
// attributes, and context extractors that pull request-scoped values
// (tenant id, user id) into every record. Attribute helpers keep log
// field names consistent across packages.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithProduction("authkit"),
//	    logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "token rotated", logger.UserID(userID))
package logger
