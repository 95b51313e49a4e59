package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/codeGROOVE-dev/freetime/pkg/availability"
)

// JSONSlot is one slot in the JSON document.
type JSONSlot struct {
	StartDate       string `json:"start_date"`
	StartTime       string `json:"start_time"`
	EndDate         string `json:"end_date"`
	EndTime         string `json:"end_time"`
	Display         string `json:"display"`
	DurationMinutes int    `json:"duration_minutes"`
}

// JSONReport is the document written by WriteJSON.
type JSONReport struct {
	Slots      []JSONSlot `json:"slots"`
	TotalHours *float64   `json:"total_hours,omitempty"`
}

// BuildJSON converts slots into the JSON document shape.
// total_hours is only set when opts.ShowTotal is true.
func BuildJSON(slots []availability.FreeSlot, opts Options) JSONReport {
	loc := opts.location()
	doc := JSONReport{Slots: make([]JSONSlot, 0, len(slots))}
	for _, s := range slots {
		start, end := s.Start.In(loc), s.End.In(loc)
		doc.Slots = append(doc.Slots, JSONSlot{
			StartDate:       start.Format(time.DateOnly),
			StartTime:       start.Format("15:04"),
			EndDate:         end.Format(time.DateOnly),
			EndTime:         end.Format("15:04"),
			Display:         opts.Display(s),
			DurationMinutes: int(math.Round(s.Duration().Minutes())),
		})
	}
	if opts.ShowTotal {
		total := math.Round(TotalHours(slots)*100) / 100
		doc.TotalHours = &total
	}
	return doc
}

// WriteJSON writes the slots as an indented JSON document.
func WriteJSON(w io.Writer, slots []availability.FreeSlot, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(BuildJSON(slots, opts)); err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	return nil
}
