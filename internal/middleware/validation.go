package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"academyapp/internal/observability"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// responseCaptureWriter buffers the response body so it can be validated
// before it reaches the client.
type responseCaptureWriter struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

func (w *responseCaptureWriter) Write(data []byte) (int, error) {
	return w.body.Write(data)
}

func (w *responseCaptureWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
}

func (w *responseCaptureWriter) Status() int {
	return w.statusCode
}

// flush writes the buffered response through to the underlying writer.
func (w *responseCaptureWriter) flush() {
	w.ResponseWriter.WriteHeader(w.statusCode)
	if w.body.Len() > 0 {
		w.ResponseWriter.Write(w.body.Bytes()) //nolint:errcheck
	}
}

// ResponseValidationMiddleware validates successful JSON responses against
// the schema the OpenAPI spec documents for the endpoint. Endpoints without
// a documented response schema pass through untouched.
func ResponseValidationMiddleware(logger *observability.Logger, loader *SchemaLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.GetGlobalTracer().Start(c.Request.Context(), "middleware.validate_response")
		defer span.End()

		schemaName := loader.DetermineSchemaFromPath(c.FullPath(), c.Request.Method)
		if schemaName == "" {
			c.Next()
			return
		}

		span.SetAttributes(
			attribute.String("validation.schema", schemaName),
			attribute.String("http.route", c.FullPath()),
		)

		writer := &responseCaptureWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		c.Writer = writer

		c.Next()

		// Only 2xx JSON bodies are validated; errors have their own shape.
		if writer.statusCode < 200 || writer.statusCode >= 300 || writer.body.Len() == 0 {
			writer.flush()
			return
		}
		contentType := writer.Header().Get("Content-Type")
		if !strings.Contains(contentType, "application/json") {
			writer.flush()
			return
		}

		var payload interface{}
		if err := json.Unmarshal(writer.body.Bytes(), &payload); err != nil {
			logger.Warn(ctx, "Response is not valid JSON, skipping schema validation", map[string]interface{}{
				"route": c.FullPath(),
				"error": err.Error(),
			})
			writer.flush()
			return
		}

		if err := loader.ValidateData(payload, schemaName); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "response schema validation failed")
			logger.Error(ctx, "Response failed schema validation", err, map[string]interface{}{
				"route":  c.FullPath(),
				"schema": schemaName,
			})
			writer.body.Reset()
			writer.statusCode = http.StatusInternalServerError
			writer.Header().Set("Content-Type", "application/json")
			errBody, _ := json.Marshal(gin.H{
				"error": "response validation failed",
				"code":  "INTERNAL_ERROR",
			})
			writer.body.Write(errBody)
		}
		writer.flush()
	}
}
