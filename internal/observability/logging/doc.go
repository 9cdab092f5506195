// Package logging configures log/slog for the gateway binaries and carries
// a request-scoped logger through context.
//
// The HTTP stack stores a logger tagged with request_id and trace_id via
// WithLogger; the auth middleware adds the caller's tier. Handlers and use
// cases call FromContext and get slog.Default() outside a request.
//
//	logger := logging.Setup("parcel-gateway")
//	logger.Info("listening", slog.String("addr", ":8080"))
//
//	func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
//	    logging.FromContext(r.Context()).Info("checkout", slog.Int("tasks", n))
//	}
package logging
