package http

import (
	"net/http"
	"time"

	"github.com/mind-engage/classroom-gateway/internal/timegrid"
)

type gridParams struct {
	StartHour     *int     `json:"start_hour" validate:"omitempty,min=0,max=23"`
	EndHour       *int     `json:"end_hour" validate:"omitempty,min=0,max=23"`
	PixelsPerHour *float64 `json:"pixels_per_hour" validate:"omitempty,gt=0"`
}

func (p *gridParams) apply(g timegrid.Grid) timegrid.Grid {
	if p == nil {
		return g
	}
	if p.StartHour != nil {
		g.StartHour = *p.StartHour
	}
	if p.EndHour != nil {
		g.EndHour = *p.EndHour
	}
	if p.PixelsPerHour != nil {
		g.PixelsPerHour = *p.PixelsPerHour
	}
	return g
}

type selectionRequest struct {
	WeekStart string      `json:"week_start" validate:"required,datetime=2006-01-02"`
	Grid      *gridParams `json:"grid"`
	Day       int         `json:"day" validate:"min=0,max=6"`
	AnchorY   *float64    `json:"anchor_y" validate:"required"`
	CurrentY  *float64    `json:"current_y" validate:"required"`
	InColumn  *bool       `json:"in_column"`
}

// POST /calendar/selection
// Replays a finished drag and returns the (date, start, end) to create.
// 204 when the release happened outside the grid.
func SelectionHandler(def timegrid.Grid) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectionRequest
		if !bind(w, r, &req) {
			return
		}
		start, _ := time.Parse(timegrid.DateLayout, req.WeekStart)
		week := timegrid.Week{Start: start}

		d := timegrid.NewDrag(req.Grid.apply(def))
		d.Begin(req.Day, *req.AnchorY)
		d.Move(*req.CurrentY)
		span, ok := d.End(req.InColumn == nil || *req.InColumn)
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, week.Selection(span))
	}
}

type layoutRequest struct {
	WeekStart string           `json:"week_start" validate:"required,datetime=2006-01-02"`
	Grid      *gridParams      `json:"grid"`
	Events    []timegrid.Event `json:"events" validate:"max=2000,dive"`
}

// POST /calendar/layout
func LayoutHandler(def timegrid.Grid) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req layoutRequest
		if !bind(w, r, &req) {
			return
		}
		start, _ := time.Parse(timegrid.DateLayout, req.WeekStart)
		g := req.Grid.apply(def)
		writeJSON(w, http.StatusOK, g.Layout(timegrid.Week{Start: start}, req.Events))
	}
}
