package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/temcen/dishrec/internal/validation"
)

// ValidateBody checks the request body against a JSON schema before the
// handler binds it. The body is restored for the handler.
func ValidateBody(validator *validation.SchemaValidator, schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			sendValidationError(c, "BODY_READ_ERROR", "Failed to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			sendValidationError(c, "EMPTY_BODY", "Request body is required")
			return
		}

		result := validator.ValidateJSON(schemaName, bodyBytes)
		if !result.Valid {
			apiError := result.ToAPIError()
			if errorObj, ok := apiError["error"].(map[string]interface{}); ok {
				errorObj["path"] = c.Request.URL.Path
				errorObj["method"] = c.Request.Method
			}
			c.JSON(http.StatusBadRequest, apiError)
			c.Abort()
			return
		}

		c.Next()
	}
}

func sendValidationError(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		},
	})
	c.Abort()
}
