// internal/utils/pagination.go
package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// GetLimitParam reads ?limit=. Missing or malformed values fall back to
// DefaultListLimit; values above MaxListLimit are capped.
func GetLimitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultListLimit)))
	if err != nil || limit < 1 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func SetListHeaders(c *gin.Context, count, limit int) {
	c.Header("X-Total-Count", strconv.Itoa(count))
	if limit > 0 {
		c.Header("X-Per-Page", strconv.Itoa(limit))
	}
}
