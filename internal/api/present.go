package api

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/pipeline"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// presentFunc derives a view's payload for one viewer from a snapshot.
type presentFunc func(snap pipeline.Snapshot, lc domain.LocalityContext) any

// presenter reads the query options of a view once, so a stream can apply
// them to every snapshot it sends.
func (h *Handler) presenter(c *gin.Context, view domain.ViewKind) (presentFunc, error) {
	switch view {
	case domain.ViewDashboard:
		opts := domain.FilterOptions{
			SearchTerm: c.Query("q"),
			Status:     c.Query("status"),
		}
		if raw := c.Query("date"); raw != "" {
			day, err := time.ParseInLocation(dateLayout, raw, h.loc)
			if err != nil {
				return nil, errors.New("invalid date, want YYYY-MM-DD")
			}
			opts.ExactDay = &day
		}
		return func(snap pipeline.Snapshot, lc domain.LocalityContext) any {
			return pipeline.BuildDashboard(snap, lc, opts, h.loc)
		}, nil

	case domain.ViewCalendar:
		year, month, selected, err := h.calendarParams(c)
		if err != nil {
			return nil, err
		}
		return func(snap pipeline.Snapshot, lc domain.LocalityContext) any {
			return pipeline.BuildCalendar(snap, lc, year, month, selected, h.loc)
		}, nil

	case domain.ViewMap:
		opts := pipeline.MapOptions{Feeder: c.Query("feeder"), Query: c.Query("q")}
		return func(snap pipeline.Snapshot, lc domain.LocalityContext) any {
			return pipeline.BuildMap(snap, lc, opts)
		}, nil
	}
	return nil, fmt.Errorf("unknown view %q", view)
}

// calendarParams defaults the month to the selected day's and the selected
// day to today.
func (h *Handler) calendarParams(c *gin.Context) (int, time.Month, time.Time, error) {
	selected := domain.Today(h.loc)
	if raw := c.Query("date"); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, h.loc)
		if err != nil {
			return 0, 0, time.Time{}, errors.New("invalid date, want YYYY-MM-DD")
		}
		selected = day
	}

	year, month := selected.Year(), selected.Month()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, time.Time{}, errors.New("invalid year")
		}
		year = y
	}
	if raw := c.Query("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, time.Time{}, errors.New("invalid month, want 1-12")
		}
		month = time.Month(m)
	}
	return year, month, selected, nil
}
