package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/campus-assist-go/internal/availability"
	"github.com/garyellow/campus-assist-go/internal/buildinfo"
	"github.com/garyellow/campus-assist-go/internal/config"
	"github.com/garyellow/campus-assist-go/internal/directory"
	domerrors "github.com/garyellow/campus-assist-go/internal/errors"
	"github.com/garyellow/campus-assist-go/internal/genai"
	"github.com/garyellow/campus-assist-go/internal/sentry"
	"github.com/garyellow/campus-assist-go/internal/timeutil"
)

type tableMeta struct {
	title       string
	blurb       string
	placeholder string
}

var tables = map[directory.Kind]tableMeta{
	directory.KindFaculty: {
		title:       "Find Faculty",
		blurb:       "Search faculty by name, department, subject or room and check whether they are available right now.",
		placeholder: "e.g. Sharma, CSE, Data Structures, A-204",
	},
	directory.KindServices: {
		title:       "Campus Services",
		blurb:       "Locate administrative offices for certificates, fee payments, admissions and more.",
		placeholder: "e.g. Bonafide, Fee, Admission, Accounts",
	},
	directory.KindLabs: {
		title:       "Labs Directory",
		blurb:       "Browse campus labs by department and location, with working hours and facilities.",
		placeholder: "e.g. Computer Lab, CSE, Block A, Lab-101",
	},
}

const (
	msgAskDisabled    = "The assistant is not configured on this server."
	msgAskEmpty       = "Please enter a question."
	msgAskRateLimited = "You have asked too many questions. Please wait a moment and try again."
	msgAskFailed      = "The assistant is unavailable right now. Please try again later."
	noScheduleLabel   = "Available (No schedule found)"
)

func (a *Application) layout(title, active string) layoutData {
	return layoutData{
		Title:   title,
		Active:  active,
		Caption: timeutil.Caption(a.now(), a.location),
		Version: buildinfo.Get().Version,
	}
}

func (a *Application) dashboard(c *gin.Context) {
	page := dashboardPage{
		layoutData: a.layout("Home", "home"),
		Assistant:  a.assistant != nil,
		Calendar:   a.evaluator != nil && a.evaluator.Source != nil,
	}
	for _, kind := range directory.Kinds {
		meta := tables[kind]
		page.Cards = append(page.Cards, tableCard{
			Kind:  kind,
			Title: meta.title,
			Blurb: meta.blurb,
			Rows:  a.cache.Peek(kind).Len(),
		})
	}
	a.views.render(c, http.StatusOK, "dashboard.html", page)
}

// directoryPage renders a filtered table. A failed load shows a notice
// instead of rows; the page itself still renders.
func (a *Application) directoryPage(kind directory.Kind) gin.HandlerFunc {
	meta := tables[kind]
	schema := directory.SchemaFor(kind)
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), config.PageRender)
		defer cancel()

		page := directoryPage{
			layoutData:  a.layout(meta.title, string(kind)),
			Kind:        kind,
			Query:       strings.TrimSpace(c.Query("q")),
			Placeholder: meta.placeholder,
			NameField:   schema.NameField,
		}

		table, err := a.cache.Get(ctx, kind)
		if err != nil {
			a.logger.WithError(err).WithField("table", kind).Warn("Directory table unavailable")
			page.Notice = domerrors.UserMessage(err, unavailableNotice(kind))
			a.views.render(c, http.StatusOK, "directory.html", page)
			return
		}

		page.Columns = displayColumns(table)
		page.Rows = table.Search(page.Query)
		page.Updated = timeutil.FormatUpdated(table.LoadedAt, a.now(), a.location)

		if kind == directory.KindFaculty {
			if name := c.Query("select"); name != "" {
				if rec, ok := table.Find(name); ok {
					page.Detail = a.facultyDetail(ctx, rec)
				}
			}
		}
		a.views.render(c, http.StatusOK, "directory.html", page)
	}
}

// unavailableNotice is the fallback for failures without a user message.
func unavailableNotice(kind directory.Kind) string {
	return fmt.Sprintf("Unable to load %s data. Please try again later.", kind)
}

func displayColumns(t *directory.Table) []string {
	if len(t.Columns) > 0 {
		return t.Columns
	}
	return directory.SchemaFor(t.Kind).Columns
}

// checkAvailability evaluates name now. hasSchedule is false only when a
// static timetable is configured and has no entry for name.
func (a *Application) checkAvailability(ctx context.Context, name string) (availability.Result, time.Time, bool) {
	now := a.now()
	res := a.evaluator.Check(ctx, name, now)
	hasSchedule := a.timetable == nil || a.timetable.Has(name)
	return res, now, hasSchedule
}

func (a *Application) facultyDetail(ctx context.Context, rec directory.Record) *facultyDetail {
	schema := directory.SchemaFor(directory.KindFaculty)
	name := rec.Get(schema.NameField)
	res, now, hasSchedule := a.checkAvailability(ctx, name)

	d := &facultyDetail{
		Name:        name,
		Status:      res.Label(a.location),
		StatusClass: statusClass(res.Status),
		Tips:        purposeTips,
		Caption:     timeutil.Caption(now, a.location),
	}
	if res.Status == availability.Available && !hasSchedule {
		d.Status = noScheduleLabel
	}
	if res.Status == availability.FetchError {
		d.Note = "The calendar could not be reached, so availability is unknown."
	}
	for _, col := range schema.Columns {
		if col == schema.NameField {
			continue
		}
		if v := rec.Get(col); v != "" {
			d.Fields = append(d.Fields, detailField{Label: col, Value: v})
		}
	}
	return d
}

func (a *Application) askForm(c *gin.Context) {
	a.views.render(c, http.StatusOK, "ask.html", askPageData{
		layoutData: a.layout("AI Assistant", "ask"),
		Enabled:    a.assistant != nil,
	})
}

func (a *Application) askSubmit(c *gin.Context) {
	question := c.PostForm("question")
	page := askPageData{
		layoutData: a.layout("AI Assistant", "ask"),
		Enabled:    a.assistant != nil,
		Question:   question,
	}
	ans, code, msg := a.ask(c, question)
	if msg != "" {
		page.Error = msg
		a.views.render(c, code, "ask.html", page)
		return
	}
	page.Answer = ans.Text
	page.Provider = string(ans.Provider)
	page.Model = ans.Model
	a.views.render(c, http.StatusOK, "ask.html", page)
}

// ask runs the assistant for one request. On failure it returns the HTTP
// status and the message to show the user.
func (a *Application) ask(c *gin.Context, question string) (genai.Answer, int, string) {
	if a.assistant == nil {
		return genai.Answer{}, http.StatusServiceUnavailable, msgAskDisabled
	}
	if strings.TrimSpace(question) == "" {
		return genai.Answer{}, http.StatusBadRequest, msgAskEmpty
	}
	if !a.allowAsk(c) {
		a.logger.WithField("client_ip", c.ClientIP()).Debug("Assistant request rate limited")
		c.Header("Retry-After", "60")
		return genai.Answer{}, http.StatusTooManyRequests, msgAskRateLimited
	}

	timeout := config.AssistantRequest
	if a.cfg != nil && a.cfg.LLMTimeout > 0 {
		timeout = a.cfg.LLMTimeout
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	ans, err := a.assistant.Ask(ctx, question)
	if err != nil {
		if errors.Is(err, genai.ErrEmptyQuestion) {
			return genai.Answer{}, http.StatusBadRequest, msgAskEmpty
		}
		_ = c.Error(err)
		if !errors.Is(err, context.Canceled) {
			sentry.CaptureGinError(c, err)
		}
		return genai.Answer{}, http.StatusBadGateway, msgAskFailed
	}
	return ans, http.StatusOK, ""
}

type tableResponse struct {
	Table    directory.Kind     `json:"table"`
	Query    string             `json:"query"`
	Count    int                `json:"count"`
	Columns  []string           `json:"columns"`
	Rows     []directory.Record `json:"rows"`
	LoadedAt *time.Time         `json:"loaded_at,omitempty"`
	Notice   string             `json:"notice,omitempty"`
}

func (a *Application) apiTable(kind directory.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), config.PageRender)
		defer cancel()

		resp := tableResponse{
			Table: kind,
			Query: strings.TrimSpace(c.Query("q")),
			Rows:  []directory.Record{},
		}
		table, err := a.cache.Get(ctx, kind)
		if err != nil {
			a.logger.WithError(err).WithField("table", kind).Warn("Directory table unavailable")
			resp.Columns = directory.SchemaFor(kind).Columns
			resp.Notice = domerrors.UserMessage(err, unavailableNotice(kind))
			c.JSON(http.StatusOK, resp)
			return
		}

		if rows := table.Search(resp.Query); rows != nil {
			resp.Rows = rows
		}
		resp.Count = len(resp.Rows)
		resp.Columns = displayColumns(table)
		if !table.LoadedAt.IsZero() {
			loaded := table.LoadedAt
			resp.LoadedAt = &loaded
		}
		c.JSON(http.StatusOK, resp)
	}
}

type availabilityResponse struct {
	Name        string                  `json:"name"`
	InDirectory bool                    `json:"in_directory"`
	Status      availability.StatusKind `json:"status"`
	Available   bool                    `json:"available"`
	Label       string                  `json:"label"`
	Title       string                  `json:"title,omitempty"`
	Start       *time.Time              `json:"start,omitempty"`
	End         *time.Time              `json:"end,omitempty"`
	HasSchedule bool                    `json:"has_schedule"`
	CheckedAt   time.Time               `json:"checked_at"`
}

func (a *Application) apiAvailability(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.PageRender)
	defer cancel()

	resp := availabilityResponse{Name: name}
	if table, err := a.cache.Get(ctx, directory.KindFaculty); err == nil {
		if rec, ok := table.Find(name); ok {
			resp.InDirectory = true
			resp.Name = rec.Get(directory.SchemaFor(directory.KindFaculty).NameField)
		}
	}

	res, now, hasSchedule := a.checkAvailability(ctx, resp.Name)
	resp.Status = res.Status
	resp.Available = res.Available
	resp.Label = res.Label(a.location)
	resp.HasSchedule = hasSchedule
	resp.CheckedAt = now.In(a.location)
	if res.Status == availability.Available && !hasSchedule {
		resp.Label = noScheduleLabel
	}
	if res.Status == availability.InSession {
		start, end := res.Start.In(a.location), res.End.In(a.location)
		resp.Title, resp.Start, resp.End = res.Title, &start, &end
	}
	c.JSON(http.StatusOK, resp)
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (a *Application) apiAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	ans, code, msg := a.ask(c, req.Question)
	if msg != "" {
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"answer":        ans.Text,
		"provider":      ans.Provider,
		"model":         ans.Model,
		"input_tokens":  ans.InputTokens,
		"output_tokens": ans.OutputTokens,
		"duration_ms":   ans.Duration.Milliseconds(),
	})
}

// adminRefresh reloads every configured table now, outside the cron
// schedule. Failed tables are reported but do not fail the request.
func (a *Application) adminRefresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), a.cfg.WarmupTimeout+config.WarmupTable)
	defer cancel()

	start := time.Now()
	err := a.refreshDirectory(ctx)
	resp := gin.H{
		"tables":      a.tableSizes(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		a.logger.WithError(err).Warn("Manual refresh had failures")
		resp["error"] = err.Error()
	} else {
		a.logger.Info("Manual refresh completed")
	}
	c.JSON(http.StatusOK, resp)
}
