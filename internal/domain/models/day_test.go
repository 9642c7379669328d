package models

import (
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		in      string
		want    Day
		wantErr bool
	}{
		{in: "2024-03-01", want: "2024-03-01"},
		{in: " 2024-03-01 ", want: "2024-03-01"},
		{in: "2024-03-01T10:00:00Z", wantErr: true},
		{in: "2024-01-15T23:30:00-05:00", wantErr: true},
		{in: "2024-01-15junk", wantErr: true},
		{in: "2024-1-5", wantErr: true},
		{in: "2024-02-30", wantErr: true},
		{in: "03/01/2024", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDay(tt.in)
			if tt.wantErr {
				if !IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDay returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseDay(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestDayOfUsesLocalCalendar(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	late := time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC)

	if got := DayOf(late, time.UTC); got != "2024-03-01" {
		t.Fatalf("UTC day = %s", got)
	}
	if got := DayOf(late, shanghai); got != "2024-03-02" {
		t.Fatalf("local day = %s", got)
	}
}

func TestDayArithmetic(t *testing.T) {
	if got := MustDay("2024-02-28").AddDays(1); got != "2024-02-29" {
		t.Fatalf("leap day = %s", got)
	}
	if got := MustDay("2024-03-01").AddDays(-1); got != "2024-02-29" {
		t.Fatalf("previous day = %s", got)
	}
	if !MustDay("2023-12-31").Before("2024-01-01") {
		t.Fatal("string ordering should follow the calendar")
	}
}

func TestPeriods(t *testing.T) {
	// 2024-03-06 is a Wednesday.
	week := WeekOf("2024-03-06")
	if week.Start != "2024-03-04" || week.End != "2024-03-10" {
		t.Fatalf("week = %+v", week)
	}
	if sunday := WeekOf("2024-03-10"); sunday != week {
		t.Fatalf("sunday belongs to week %+v", sunday)
	}

	month := MonthOf("2024-02-10")
	if month.Start != "2024-02-01" || month.End != "2024-02-29" {
		t.Fatalf("month = %+v", month)
	}
	if !month.Contains("2024-02-29") || month.Contains("2024-03-01") {
		t.Fatal("month bounds are inclusive")
	}

	if _, err := NewPeriod("2024-03-02", "2024-03-01"); !IsValidation(err) {
		t.Fatalf("expected validation error for inverted period, got %v", err)
	}
	if _, err := NewPeriod("", "2024-03-01"); !IsValidation(err) {
		t.Fatalf("expected validation error for open period, got %v", err)
	}
}
