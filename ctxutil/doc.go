// Package ctxutil provides request-scoped context helpers.
//
// Values set through SetValue are visible both on the context.Context chain
// and, when one is embedded, on the *gin.Context:
//
//	ctx, traceID := ctxutil.EnsureTraceID(ctx)
//	logger.Info(ctx, "listing collection") // carries trace_id
//
// TraceMiddleware wires the same trace id into gin handlers.
package ctxutil
