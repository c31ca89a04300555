// Package httpapi exposes the planning core over the /planning-policy
// routes of spec §6(b): a thin gin dispatch layer that decodes requests
// into the planning core's domain types, calls straight into
// policy/scheduler/robustness/whatif/replan, and re-encodes the result.
package httpapi

import "github.com/gin-gonic/gin"

// ErrorCode is one of the three envelope error codes (spec §6b).
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeInternal   ErrorCode = "INTERNAL_ERROR"
)

var httpStatusForCode = map[ErrorCode]int{
	CodeValidation: 400,
	CodeNotFound:   404,
	CodeInternal:   500,
}

func respondOK(c *gin.Context, data any) {
	c.JSON(200, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, code ErrorCode, message string) {
	status, ok := httpStatusForCode[code]
	if !ok {
		status = 500
	}
	c.JSON(status, gin.H{"success": false, "code": code, "message": message})
}
