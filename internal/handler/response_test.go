package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"adjudge/internal/service"
	"adjudge/internal/sheet"
)

func TestOkEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Ok(c, gin.H{"x": 1}, map[string]any{"count": 1})

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Meta    map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != 0 || resp.Message != "ok" {
		t.Fatalf("resp=%+v", resp)
	}
	if resp.Meta["count"] != float64(1) {
		t.Fatalf("meta=%v", resp.Meta)
	}
}

func TestPaginatedMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		limit, offset int
		total         int64
		hasNext       bool
	}{
		{limit: 10, offset: 0, total: 25, hasNext: true},
		{limit: 10, offset: 20, total: 25, hasNext: false},
		{limit: -1, offset: -5, total: 3, hasNext: true},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		Paginated(c, []int{1}, tc.limit, tc.offset, tc.total)

		var resp struct {
			Meta pageMeta `json:"meta"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Meta.Total != tc.total || resp.Meta.HasNext != tc.hasNext {
			t.Fatalf("case %+v: meta=%+v", tc, resp.Meta)
		}
		if resp.Meta.Limit < 0 || resp.Meta.Offset < 0 {
			t.Fatalf("negative paging must be clamped, meta=%+v", resp.Meta)
		}
	}
}

func TestAnalysisFailStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &AnalysisHandler{}

	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("fetch: %w", sheet.ErrRangeNotFound), http.StatusNotFound},
		{fmt.Errorf("fetch: %w", sheet.ErrSourceUnavailable), http.StatusBadGateway},
		{fmt.Errorf("load: %w", service.ErrConfigMissing), http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/analysis/comparison", nil)

		h.fail(c, tc.err)

		if w.Code != tc.status {
			t.Fatalf("err=%v: status=%d want=%d", tc.err, w.Code, tc.status)
		}
		var resp apiResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Code != tc.status {
			t.Fatalf("err=%v: code=%d want=%d", tc.err, resp.Code, tc.status)
		}
	}
}
