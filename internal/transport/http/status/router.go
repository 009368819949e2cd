package statushttp

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"niftybot/internal/logger"
	"niftybot/internal/pipeline"

	"github.com/gin-gonic/gin"
)

const maxLogLineSize = 1024 * 1024

const (
	defaultLogLines = 200
	maxLogLines     = 2000
)

// RunReporter exposes the most recent pipeline outcome.
type RunReporter interface {
	LastRun() (pipeline.Outcome, bool)
}

// RunTrigger starts an out-of-schedule run.
type RunTrigger interface {
	Run(ctx context.Context) pipeline.Outcome
}

// CalendarView answers market-closed questions.
type CalendarView interface {
	Reason(ref time.Time) string
	NextOpen(ref time.Time) (time.Time, bool)
	Location() *time.Location
}

// Router mounts the status endpoints under /api.
type Router struct {
	runs     RunReporter
	trigger  RunTrigger
	calendar CalendarView
	logPaths map[string]string
	logNames []string
	now      func() time.Time
}

func NewRouter(cfg ServerConfig) *Router {
	names := make([]string, 0, len(cfg.LogPaths))
	for name, path := range cfg.LogPaths {
		if strings.TrimSpace(path) == "" || strings.TrimSpace(name) == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return &Router{
		runs:     cfg.Runs,
		trigger:  cfg.Trigger,
		calendar: cfg.Calendar,
		logPaths: cfg.LogPaths,
		logNames: names,
		now:      time.Now,
	}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/runs/last", r.handleLastRun)
	if r.trigger != nil {
		group.POST("/runs", r.handleTriggerRun)
	}
	if r.calendar != nil {
		group.GET("/calendar", r.handleCalendar)
	}
	if len(r.logNames) > 0 {
		group.GET("/logs", r.handleLogs)
	}
}

func (r *Router) handleLastRun(c *gin.Context) {
	out, ok := r.runs.LastRun()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run yet"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleTriggerRun(c *gin.Context) {
	out := r.trigger.Run(c.Request.Context())
	if errors.Is(out.Err, pipeline.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": out.Error})
		return
	}
	logger.Infof("[api] manual run %s finished skipped=%v", out.RunID, out.Skipped)
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleCalendar(c *gin.Context) {
	loc := r.calendar.Location()
	ref := r.now().In(loc)
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		day, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		ref = day
	}
	reason := r.calendar.Reason(ref)
	resp := gin.H{
		"date":   ref.Format("2006-01-02"),
		"closed": reason != "",
		"reason": reason,
	}
	if next, ok := r.calendar.NextOpen(ref); ok {
		resp["next_open"] = next.Format("2006-01-02")
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleLogs(c *gin.Context) {
	name := strings.TrimSpace(c.DefaultQuery("name", ""))
	path := ""
	if name != "" {
		path = strings.TrimSpace(r.logPaths[name])
	}
	if path == "" {
		name = r.logNames[0]
		path = r.logPaths[name]
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLines)))
	if limit <= 0 {
		limit = defaultLogLines
	}
	limit = min(limit, maxLogLines)
	lines, err := readLastLines(path, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "name": name})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":      name,
		"lines":     lines,
		"available": r.logNames,
	})
}

func readLastLines(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLineSize)
	lines := make([]string, 0, min(limit, maxLogLines)+1)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
