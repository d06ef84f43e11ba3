package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

// ExpectedVersion reads the If-Match header. A missing header or "*"
// yields 0, meaning no version check.
func ExpectedVersion(c *gin.Context) (int, error) {
	return ParseETag(c.GetHeader("If-Match"))
}

// ParseETag accepts 3, "3" and W/"3".
func ParseETag(raw string) (int, error) {
	v := strings.TrimSpace(raw)
	if v == "" || v == "*" {
		return 0, nil
	}
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.Errorf(domain.ErrValidation, "If-Match %q is not an entity version", raw)
	}
	return n, nil
}

// ETag formats an entity version for the ETag header.
func ETag(version int) string {
	return strconv.Quote(strconv.Itoa(version))
}

func setETag(c *gin.Context, version int) {
	c.Header("ETag", ETag(version))
}
