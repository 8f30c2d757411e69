package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-insights/internal/export"
	"github.com/i474232898/weather-insights/internal/insights"
	"github.com/i474232898/weather-insights/internal/jobs"
	"github.com/i474232898/weather-insights/internal/weather"
)

const (
	defaultInsightLimit = 20
	maxInsightLimit     = 100
)

var validate = validator.New()

// ReadingService is the part of *weather.Service the API uses.
type ReadingService interface {
	Collect(ctx context.Context, req weather.CollectRequest) (*weather.Reading, error)
	Readings(ctx context.Context, since time.Time, location string) ([]weather.Reading, error)
	LatestReading(ctx context.Context, location string) (weather.Reading, error)
}

// InsightService is the part of *insights.Generator the API uses.
type InsightService interface {
	Generate(ctx context.Context, req insights.Request) (*insights.Result, error)
	Latest(ctx context.Context) (weather.Insight, error)
	List(ctx context.Context, limit int) ([]weather.Insight, error)
}

// TaskDispatcher queues background work. *jobs.Dispatcher satisfies it.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, job jobs.Job) (string, error)
	Status(id string) (jobs.TaskState, bool)
}

// Pinger reports whether a backing service is reachable. *store.GormStore satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the handlers call.
type Dependencies struct {
	Readings   ReadingService
	Insights   InsightService
	Dispatcher TaskDispatcher // optional; without it async generation is refused
	Metrics    http.Handler   // optional
	Store      Pinger         // optional; checked by /health
	// DefaultHours is the window used when a generate request names none.
	DefaultHours int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	if deps.DefaultHours <= 0 {
		deps.DefaultHours = insights.DefaultHours
	}
	h := &handlers{deps: deps}

	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	v1 := app.Group("/api/v1")

	v1.Post("/readings/fetch", h.fetchReading)
	v1.Get("/readings", h.listReadings)
	v1.Get("/readings/latest", h.latestReading)
	v1.Get("/readings/export", h.exportReadings)

	v1.Get("/insights", h.listInsights)
	v1.Get("/insights/latest", h.latestInsight)
	v1.Post("/insights/generate", h.generateInsight)

	v1.Get("/tasks/:id", h.taskStatus)
}

type handlers struct {
	deps Dependencies
}

// fetchRequest is the optional body of POST /readings/fetch.
type fetchRequest struct {
	Location string `json:"location" validate:"max=128"`
	Country  string `json:"country" validate:"omitempty,len=2"`
}

func (h *handlers) fetchReading(c *fiber.Ctx) error {
	var req fetchRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	reading, err := h.deps.Readings.Collect(c.UserContext(), weather.CollectRequest{
		Place:   req.Location,
		Country: req.Country,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

// readingsQuery holds query parameters shared by the list and export endpoints.
type readingsQuery struct {
	Since    time.Time
	Location string `validate:"max=128"`
}

func (q *readingsQuery) bind(c *fiber.Ctx) error {
	q.Location = strings.TrimSpace(c.Query("location"))
	if s := c.Query("since"); s != "" {
		since, err := parseTime(s)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		q.Since = since
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func (h *handlers) listReadings(c *fiber.Ctx) error {
	var q readingsQuery
	if err := q.bind(c); err != nil {
		return err
	}

	readings, err := h.deps.Readings.Readings(c.UserContext(), q.Since, q.Location)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":    len(readings),
		"readings": readings,
	})
}

func (h *handlers) latestReading(c *fiber.Ctx) error {
	location := strings.TrimSpace(c.Query("location"))
	reading, err := h.deps.Readings.LatestReading(c.UserContext(), location)
	if err != nil {
		if errors.Is(err, weather.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no weather readings for requested location")
		}
		return err
	}
	return c.JSON(reading)
}

func (h *handlers) exportReadings(c *fiber.Ctx) error {
	exporter, err := export.ForFormat(c.Query("format"))
	if err != nil {
		return err
	}
	var q readingsQuery
	if err := q.bind(c); err != nil {
		return err
	}

	readings, err := h.deps.Readings.Readings(c.UserContext(), q.Since, q.Location)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := exporter.Write(&buf, readings); err != nil {
		return fmt.Errorf("failed to export readings: %w", err)
	}
	c.Attachment(export.Filename(exporter))
	c.Set(fiber.HeaderContentType, exporter.ContentType())
	return c.Send(buf.Bytes())
}

func (h *handlers) listInsights(c *fiber.Ctx) error {
	limit := defaultInsightLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxInsightLimit {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", maxInsightLimit))
		}
		limit = n
	}

	list, err := h.deps.Insights.List(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":    len(list),
		"insights": list,
	})
}

func (h *handlers) latestInsight(c *fiber.Ctx) error {
	in, err := h.deps.Insights.Latest(c.UserContext())
	if err != nil {
		if errors.Is(err, weather.ErrNotFound) {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return err
	}
	return c.JSON(in)
}

// generateRequest is the body of POST /insights/generate.
type generateRequest struct {
	Hours        int    `json:"hours" validate:"omitempty,gte=1,lte=8760"`
	Location     string `json:"location" validate:"max=128"`
	ForceCollect bool   `json:"force_collect"`
	Async        bool   `json:"async"`
}

func (h *handlers) generateInsight(c *fiber.Ctx) error {
	var req generateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if req.Hours == 0 {
		req.Hours = h.deps.DefaultHours
	}

	if req.Async {
		if h.deps.Dispatcher == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "asynchronous generation is not available")
		}
		id, err := h.deps.Dispatcher.Dispatch(c.UserContext(), jobs.Job{
			Kind:         jobs.KindGenerate,
			Hours:        req.Hours,
			Location:     req.Location,
			ForceCollect: req.ForceCollect,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"task_id": id,
			"status":  jobs.StatusQueued,
		})
	}

	res, err := h.deps.Insights.Generate(c.UserContext(), insights.Request{
		Hours:        req.Hours,
		Location:     req.Location,
		ForceCollect: req.ForceCollect,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":           res.Insight.ID,
		"generated_at": res.Insight.GeneratedAt,
		"text":         res.Insight.Text,
		"outcome":      res.Outcome,
		"count":        res.Aggregate.Count,
	})
}

func (h *handlers) taskStatus(c *fiber.Ctx) error {
	if h.deps.Dispatcher == nil {
		return fiber.NewError(fiber.StatusNotFound, "task not found")
	}
	state, ok := h.deps.Dispatcher.Status(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "task not found")
	}
	return c.JSON(state)
}

// bindBody parses an optional JSON body into dst and validates it.
func bindBody(c *fiber.Ctx, dst interface{}) error {
	if len(bytes.TrimSpace(c.Body())) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
