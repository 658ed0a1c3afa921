// Package httpctx reads the request-scoped values the middleware stores on a gin context.
package httpctx

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

const (
	KeyUserID   = "user_id"
	KeyRole     = "role"
	KeyLGAScope = "lga_scope"
	KeyClientIP = "client_ip"
)

func UserID(c *gin.Context) uint {
	if v, ok := c.Get(KeyUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func Role(c *gin.Context) string {
	return c.GetString(KeyRole)
}

// LGAScope is the local government an lg admin is bound to; nil means unrestricted.
func LGAScope(c *gin.Context) *uint {
	if v, ok := c.Get(KeyLGAScope); ok {
		if id, ok := v.(*uint); ok {
			return id
		}
	}
	return nil
}

func ClientIP(c *gin.Context) string {
	if ip := c.GetString(KeyClientIP); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// ParamID parses a numeric path parameter, writing 400 on failure.
func ParamID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// QueryUint returns nil for missing or malformed values.
func QueryUint(c *gin.Context, name string) *uint {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	id := uint(v)
	return &id
}

// Paging reads page and page_size (or limit) with bounds.
func Paging(c *gin.Context, defaultSize, maxSize int) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	raw := c.Query("page_size")
	if raw == "" {
		raw = c.Query("limit")
	}
	size, _ = strconv.Atoi(raw)
	if size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}

// PageEnvelope is the {results, count, next, previous} list shape.
type PageEnvelope struct {
	Results  interface{} `json:"results"`
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
}

// Envelope builds next/previous links from the current request URL.
func Envelope(c *gin.Context, results interface{}, count int64, page, size int) PageEnvelope {
	env := PageEnvelope{Results: results, Count: count}
	totalPages := int(math.Ceil(float64(count) / float64(size)))
	if page < totalPages {
		next := pageURL(c, page+1)
		env.Next = &next
	}
	if page > 1 {
		prev := pageURL(c, page-1)
		env.Previous = &prev
	}
	return env
}

func pageURL(c *gin.Context, page int) string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

// Fail writes the error response for err. Field validation errors carry the
// {"errors": {field: [msg]}} map.
func Fail(c *gin.Context, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  verr.Message,
			"errors": gin.H{verr.Field: []string{verr.Message}},
		})
		return
	}
	c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
}

// Viewer is the authenticated requester.
func Viewer(c *gin.Context) access.Viewer {
	return access.Viewer{UserID: UserID(c), Role: Role(c), Scope: LGAScope(c)}
}
