package app

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/garyellow/campus-assist-go/internal/availability"
	"github.com/garyellow/campus-assist-go/internal/directory"
)

//go:embed templates/*.html
var templateFS embed.FS

// views holds one template set per page, each parsed together with the
// shared layout.
type views struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"field": func(r directory.Record, name string) string { return r.Get(name) },
}

func loadViews() (*views, error) {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	v := &views{pages: make(map[string]*template.Template)}
	for _, page := range pages {
		if page == "templates/layout.html" {
			continue
		}
		t, err := template.New("layout.html").Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		v.pages[page[len("templates/"):]] = t
	}
	return v, nil
}

// render writes page with the layout. Unknown pages are a programming
// error and render as a 500.
func (v *views) render(c *gin.Context, code int, page string, data any) {
	t, ok := v.pages[page]
	if !ok {
		_ = c.Error(fmt.Errorf("unknown page %q", page))
		c.String(500, "internal error")
		return
	}
	c.Render(code, render.HTML{Template: t, Name: "layout", Data: data})
}

// layoutData is embedded in every page model.
type layoutData struct {
	Title   string
	Active  string
	Caption string
	Version string
}

type tableCard struct {
	Kind  directory.Kind
	Title string
	Blurb string
	Rows  int
}

type dashboardPage struct {
	layoutData
	Cards     []tableCard
	Assistant bool
	Calendar  bool
}

type directoryPage struct {
	layoutData
	Kind        directory.Kind
	Query       string
	Placeholder string
	Columns     []string
	NameField   string
	Rows        []directory.Record
	Notice      string
	Updated     string
	Detail      *facultyDetail
}

type facultyDetail struct {
	Name        string
	Fields      []detailField
	Status      string
	StatusClass string
	Note        string
	Tips        []purposeTip
	Caption     string
}

type detailField struct {
	Label string
	Value string
}

type askPageData struct {
	layoutData
	Enabled  bool
	Question string
	Answer   string
	Provider string
	Model    string
	Error    string
}

type errorPage struct {
	layoutData
	Message string
}

// statusClass maps a result onto the CSS badge class.
func statusClass(s availability.StatusKind) string {
	switch s {
	case availability.Available:
		return "ok"
	case availability.InSession:
		return "busy"
	case availability.FetchError:
		return "error"
	default:
		return "closed"
	}
}
