package middleware

import (
	"alumni-server/utils/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

const loggerKey contextKey = "logger"

// loggerFrom returns the logger ErrorMiddleware attached to ctx, or slog.Default().
func loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// ErrorMiddleware recovers from panics and answers with a generic 500.
// It also hands its logger to WriteError through the request context.
func ErrorMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(context.WithValue(r.Context(), loggerKey, logger))
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(r.Context(), "panic recovered",
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					WriteError(w, r, errors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes err as a JSON APIError. Anything that is not an APIError
// becomes a 500, and 5xx bodies never carry details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *errors.APIError
	if !stderrors.As(err, &apiErr) {
		apiErr = errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Message, errors.ErrInternal.Status)
	}
	// Log server errors
	if apiErr.Status >= http.StatusInternalServerError {
		loggerFrom(r.Context()).ErrorContext(r.Context(), "server error",
			slog.String("error", apiErr.Error()),
			slog.String("details", apiErr.Details),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, apiErr.Status, apiErr.Public())
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.Any("error", err))
	}
}
