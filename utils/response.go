package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response. code is the stable machine-readable
// error kind clients branch on; message and error are for humans.
func JSONError(c *gin.Context, status int, code string, err error, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"code":    code,
		"error":   err.Error(),
	})
}

// AbortJSONError is JSONError for middleware: it also stops the handler chain
func AbortJSONError(c *gin.Context, status int, code string, err error, message string) {
	JSONError(c, status, code, err, message)
	c.Abort()
}
