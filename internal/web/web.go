// Package web renders the server-side pages.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"notary-service/internal/access"
	"notary-service/internal/domain/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html static/*
var files embed.FS

// Pages rendered inside the shared layout.
const (
	PageLogin          = "login"
	PageForgotPassword = "forgot_password"
	PageResetPassword  = "reset_password"
	PageHome           = "home"
	PageTable          = "table"
	PageHelp           = "help"
	PageProfile        = "profile"
	PageError          = "error"
)

var pageNames = []string{
	PageLogin, PageForgotPassword, PageResetPassword, PageHome,
	PageTable, PageHelp, PageProfile, PageError,
}

// Page is the data every template receives.
type Page struct {
	Title      string
	SystemName string
	Principal  *auth.Principal
	Nav        []access.NavItem
	Active     string
	Unread     int64
	Flash      string
	Error      string
	Data       any
}

// Table is a generic list view. Failed marks a query that could not run.
type Table struct {
	Columns []string
	Rows    [][]string
	Empty   string
	Failed  bool
}

// UnreadCounter feeds the notification badge in the navigation.
type UnreadCounter interface {
	UnreadCount(ctx context.Context, userID int64) int64
}

type Renderer struct {
	pages      map[string]*template.Template
	systemName string
	unread     UnreadCounter
	logger     *zap.Logger
}

// WithUnread enables the notification badge.
func (r *Renderer) WithUnread(u UnreadCounter) *Renderer {
	r.unread = u
	return r
}

func NewRenderer(systemName string, logger *zap.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
	}
	r := &Renderer{pages: make(map[string]*template.Template), systemName: systemName, logger: logger}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// HTML renders name with status. The page is buffered so a template error
// never produces half a response.
func (r *Renderer) HTML(c *gin.Context, status int, name string, page Page) {
	t, ok := r.pages[name]
	if !ok {
		r.logger.Error("unknown page", zap.String("page", name))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if page.SystemName == "" {
		page.SystemName = r.systemName
	}
	if page.Principal != nil {
		if page.Nav == nil {
			page.Nav = access.Navigation(page.Principal.Role)
		}
		if r.unread != nil {
			page.Unread = r.unread.UnreadCount(c.Request.Context(), page.Principal.UserID)
		}
	}
	if page.Active == "" {
		page.Active = c.Request.URL.Path
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.logger.Error("render failed", zap.String("page", name), zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// Static serves the embedded assets.
func Static() http.FileSystem {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
