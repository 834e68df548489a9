package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Pagination carries offset/limit query parameters with sane bounds.
type Pagination struct {
	Offset int
	Limit  int
}

// ParsePagination reads offset and limit from the query string. Invalid or
// out-of-range values fall back to defaults instead of erroring.
func ParsePagination(c *gin.Context) Pagination {
	pagination := Pagination{Offset: 0, Limit: defaultLimit}

	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			pagination.Offset = offset
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			if limit > maxLimit {
				limit = maxLimit
			}
			pagination.Limit = limit
		}
	}

	return pagination
}
