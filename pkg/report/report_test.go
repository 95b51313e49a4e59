package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/language"

	"github.com/codeGROOVE-dev/freetime/pkg/availability"
)

var jst = time.FixedZone("Asia/Tokyo", 9*60*60)

func init() {
	color.NoColor = true
}

func slot(day, sh, sm, eh, em int) availability.FreeSlot {
	start := time.Date(2026, 10, day, sh, sm, 0, 0, jst)
	end := time.Date(2026, 10, day, eh, em, 0, 0, jst)
	return availability.FreeSlot{Start: start, End: end, DurationHours: end.Sub(start).Hours()}
}

func baseOptions() Options {
	return Options{
		Location:          jst,
		Language:          language.Japanese,
		BusinessStartHour: 10,
		BusinessEndHour:   18,
		MinHours:          1,
		Days:              14,
		ExcludeHolidays:   true,
	}
}

func TestWriteText(t *testing.T) {
	slots := []availability.FreeSlot{slot(20, 10, 30, 11, 30), slot(20, 13, 30, 17, 30), slot(21, 10, 30, 17, 30)}

	tests := []struct {
		name   string
		mutate func(*Options)
		want   string
	}{
		{
			name: "default japanese",
			want: "Finding available time slots (weekdays, 10:00-18:00) of 1.0+ hours for the next 14 days\n" +
				"Holidays are excluded. Use --include-holidays to include them.\n" +
				"Found 3 available time slots:\n" +
				"2026-10-20(火) 10:30 - 11:30\n" +
				"2026-10-20(火) 13:30 - 17:30\n" +
				"2026-10-21(水) 10:30 - 17:30\n",
		},
		{
			name: "english weekdays, holidays included, totals",
			mutate: func(o *Options) {
				o.Language = language.English
				o.ExcludeHolidays = false
				o.ShowTotal = true
				o.MinHours = 1.5
			},
			want: "Finding available time slots (weekdays, 10:00-18:00) of 1.5+ hours for the next 14 days\n" +
				"Found 3 available time slots:\n" +
				"2026-10-20(Tue) 10:30 - 11:30\n" +
				"2026-10-20(Tue) 13:30 - 17:30\n" +
				"2026-10-21(Wed) 10:30 - 17:30\n" +
				"\n合計空き時間: 12.00時間\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := baseOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			var buf bytes.Buffer
			if err := WriteText(&buf, slots, opts); err != nil {
				t.Fatalf("WriteText() error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("WriteText() =\n%s\nwant\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteTextNoSlots(t *testing.T) {
	opts := baseOptions()
	opts.ShowTotal = true
	var buf bytes.Buffer
	if err := WriteText(&buf, nil, opts); err != nil {
		t.Fatalf("WriteText() error: %v", err)
	}
	if !strings.Contains(buf.String(), "Found 0 available time slots:\n\n合計空き時間: 0.00時間") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteTextUsesReportZone(t *testing.T) {
	utcSlot := availability.FreeSlot{
		Start:         time.Date(2026, 10, 20, 1, 30, 0, 0, time.UTC),
		End:           time.Date(2026, 10, 20, 8, 30, 0, 0, time.UTC),
		DurationHours: 7,
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, []availability.FreeSlot{utcSlot}, baseOptions()); err != nil {
		t.Fatalf("WriteText() error: %v", err)
	}
	if !strings.Contains(buf.String(), "2026-10-20(火) 10:30 - 17:30") {
		t.Errorf("slot not rendered in JST:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	slots := []availability.FreeSlot{slot(20, 10, 30, 11, 45), slot(21, 10, 30, 17, 30)}

	t.Run("without totals", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, slots, baseOptions()); err != nil {
			t.Fatalf("WriteJSON() error: %v", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
		}
		if _, ok := doc["total_hours"]; ok {
			t.Error("total_hours present without ShowTotal")
		}
		got, ok := doc["slots"].([]any)
		if !ok || len(got) != 2 {
			t.Fatalf("slots = %v", doc["slots"])
		}
		first, ok := got[0].(map[string]any)
		if !ok {
			t.Fatalf("slot is %T", got[0])
		}
		want := map[string]any{
			"start_date":       "2026-10-20",
			"start_time":       "10:30",
			"end_date":         "2026-10-20",
			"end_time":         "11:45",
			"display":          "2026-10-20(火) 10:30 - 11:45",
			"duration_minutes": float64(75),
		}
		for k, v := range want {
			if first[k] != v {
				t.Errorf("%s = %v, want %v", k, first[k], v)
			}
		}
	})

	t.Run("with totals", func(t *testing.T) {
		opts := baseOptions()
		opts.ShowTotal = true
		doc := BuildJSON(slots, opts)
		if doc.TotalHours == nil || *doc.TotalHours != 8.25 {
			t.Errorf("TotalHours = %v, want 8.25", doc.TotalHours)
		}
	})

	t.Run("empty list is an array", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, nil, baseOptions()); err != nil {
			t.Fatalf("WriteJSON() error: %v", err)
		}
		if !strings.Contains(buf.String(), `"slots": []`) {
			t.Errorf("empty slots not rendered as []:\n%s", buf.String())
		}
	})
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    language.Tag
		wantErr bool
	}{
		{in: "ja", want: language.Japanese},
		{in: "ja-JP", want: language.Japanese},
		{in: "en", want: language.English},
		{in: "en-US", want: language.English},
		{in: "fr", wantErr: true},
		{in: "not a tag!", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLanguage(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLanguage(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLanguage(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWeekdayLabel(t *testing.T) {
	if got := WeekdayLabel(time.Monday, language.Japanese); got != "月" {
		t.Errorf("Monday ja = %q", got)
	}
	if got := WeekdayLabel(time.Sunday, language.English); got != "Sun" {
		t.Errorf("Sunday en = %q", got)
	}
	if got := WeekdayLabel(time.Friday, language.German); got != "金" {
		t.Errorf("unsupported tag should fall back to Japanese, got %q", got)
	}
}

func TestFormatHours(t *testing.T) {
	tests := map[float64]string{1: "1.0", 1.5: "1.5", 0.25: "0.25", 12: "12.0"}
	for in, want := range tests {
		if got := FormatHours(in); got != want {
			t.Errorf("FormatHours(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestDailyTotalsAndSummary(t *testing.T) {
	slots := []availability.FreeSlot{slot(20, 10, 30, 11, 30), slot(20, 13, 30, 17, 30), slot(21, 10, 30, 17, 30)}

	totals := DailyTotals(slots, jst)
	if len(totals) != 2 {
		t.Fatalf("DailyTotals() returned %d days, want 2", len(totals))
	}
	if totals[0].Hours != 5 || totals[0].Slots != 2 || totals[0].Weekday != time.Tuesday {
		t.Errorf("first day = %+v", totals[0])
	}
	if totals[1].Hours != 7 || totals[1].Slots != 1 {
		t.Errorf("second day = %+v", totals[1])
	}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, slots, baseOptions()); err != nil {
		t.Fatalf("WriteSummary() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "10-20(火) "+strings.Repeat("█", 10)+strings.Repeat("·", 6)+"  5.00h") {
		t.Errorf("summary missing 10-20 bar:\n%s", out)
	}
	if !strings.Contains(out, "10-21(水) "+strings.Repeat("█", 14)+strings.Repeat("·", 2)+"  7.00h") {
		t.Errorf("summary missing 10-21 bar:\n%s", out)
	}

	buf.Reset()
	if err := WriteSummary(&buf, nil, baseOptions()); err != nil || buf.Len() != 0 {
		t.Errorf("WriteSummary(nil) = %q, %v; want nothing", buf.String(), err)
	}
}
