package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

// pageMeta is the pagination envelope for the settings and audit-log lists.
type pageMeta struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

func Ok(c *gin.Context, data any, meta any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

// Paginated is Ok with page bookkeeping for list endpoints.
func Paginated(c *gin.Context, data any, limit, offset int, total int64) {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	Ok(c, data, pageMeta{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasNext: int64(offset+limit) < total,
	})
}

func Error(c *gin.Context, status int, message string, meta any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}
