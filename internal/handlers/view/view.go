// Package view holds the helpers shared by the page handlers: every list
// endpoint answers either an HTML table or JSON.
package view

import (
	"net/http"
	"strconv"
	"time"

	"notary-service/internal/middleware"
	"notary-service/internal/pkg/response"
	"notary-service/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// List renders rows as a table page, or data as JSON for API callers.
// A non-nil err renders the failure state instead of an error page.
func List(c *gin.Context, pages *web.Renderer, title string, table web.Table, data any, err error) {
	if middleware.WantsJSON(c) {
		if err != nil {
			response.FromError(c, err, "The list could not be loaded")
			return
		}
		response.Success(c, http.StatusOK, title, data)
		return
	}
	if err != nil {
		table.Failed = true
		table.Rows = nil
	}
	pages.HTML(c, http.StatusOK, web.PageTable, web.Page{
		Title:     title,
		Principal: middleware.MustGetPrincipal(c),
		Data:      table,
	})
}

// Fail answers a mutation error. Only server-side failures are logged.
func Fail(c *gin.Context, logger *zap.Logger, err error, msg string) {
	if response.StatusFor(err) >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err), zap.String("request_id", middleware.GetRequestID(c)))
	}
	response.FromError(c, err, "Something went wrong, please try again later")
}

// ParamID reads a positive integer path parameter.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// QueryID reads an optional positive integer query parameter.
func QueryID(c *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func Int(n int64) string {
	return strconv.FormatInt(n, 10)
}

func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
