package web

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/medadmin/medadmin/internal/platform/session"
)

// Page is the data every page template receives.
type Page struct {
	Title     string
	Session   *session.Session
	CSRF      string
	RequestID string
	Flash     string
	Error     string
	Data      any
}

// NewPage fills the request-scoped fields of a Page.
func NewPage(c echo.Context, title string, data any) *Page {
	csrf, _ := c.Get(echomw.DefaultCSRFConfig.ContextKey).(string)
	rid, _ := c.Get("request_id").(string)
	return &Page{
		Title:     title,
		Session:   session.Current(c),
		CSRF:      csrf,
		RequestID: rid,
		Data:      data,
	}
}

func (p *Page) WithFlash(msg string) *Page {
	p.Flash = msg
	return p
}

func (p *Page) WithError(msg string) *Page {
	p.Error = msg
	return p
}
