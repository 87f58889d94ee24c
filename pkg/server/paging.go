package server

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/gin-gonic/gin"
)

// Slice all into pages of the configured size. The continuation token is the
// offset of the next page, continuationUri repeats the request with it.
func page[T any](c *gin.Context, pageSize int, all []T) (*models.ListResponse[T], bool) {
	offset := 0
	if token := c.Query("continuationToken"); token != "" {
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 || n > len(all) {
			fabricError(c, http.StatusBadRequest, "InvalidContinuationToken", "invalid continuation token %q", token)
			return nil, false
		}
		offset = n
	}
	if n, err := strconv.Atoi(c.Query("maxResults")); err == nil && n > 0 && n < pageSize {
		pageSize = n
	}

	end := min(offset+pageSize, len(all))
	resp := &models.ListResponse[T]{Value: all[offset:end]}
	if end < len(all) {
		resp.ContinuationToken = strconv.Itoa(end)
		q := c.Request.URL.Query()
		q.Set("continuationToken", resp.ContinuationToken)
		u := url.URL{Path: c.Request.URL.Path, RawQuery: q.Encode()}
		resp.ContinuationURI = origin(c) + u.String()
	}
	if resp.Value == nil {
		resp.Value = []T{}
	}
	return resp, true
}

func respondPage[T any](c *gin.Context, pageSize int, all []T) {
	resp, ok := page(c, pageSize, all)
	if ok {
		c.JSON(http.StatusOK, resp)
	}
}
