package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDate_AddMonths(t *testing.T) {
	tests := []struct {
		name  string
		start Date
		n     int
		want  Date
	}{
		{"same day next month", NewDate(2024, 6, 10), 1, NewDate(2024, 7, 10)},
		{"zero months", NewDate(2024, 6, 10), 0, NewDate(2024, 6, 10)},
		{"crosses year", NewDate(2024, 11, 15), 3, NewDate(2025, 2, 15)},
		{"jan 31 to leap february", NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)},
		{"jan 31 to february", NewDate(2023, 1, 31), 1, NewDate(2023, 2, 28)},
		{"jan 31 plus two keeps day", NewDate(2024, 1, 31), 2, NewDate(2024, 3, 31)},
		{"aug 31 to september", NewDate(2024, 8, 31), 1, NewDate(2024, 9, 30)},
		{"twelve months", NewDate(2024, 6, 10), 11, NewDate(2025, 5, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.AddMonths(tt.n)
			if !got.Equal(tt.want.Time) {
				t.Errorf("AddMonths(%s, %d) = %s, want %s", tt.start, tt.n, got, tt.want)
			}
		})
	}
}

func TestDate_AddMonthsNeverSkipsAMonth(t *testing.T) {
	start := NewDate(2024, 1, 31)
	for i := 0; i < 24; i++ {
		got := start.AddMonths(i)
		if MonthsBetween(start, got) != i {
			t.Fatalf("AddMonths(%d) = %s lands %d months away", i, got, MonthsBetween(start, got))
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-07-05")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Year() != 2024 || d.Month() != 7 || d.Day() != 5 {
		t.Errorf("ParseDate() = %v", d)
	}

	for _, bad := range []string{"", "2024-13-01", "05/07/2024", "2024-02-30"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Date Date `json:"date"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2024-06-10"}`), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !payload.Date.Equal(NewDate(2024, 6, 10).Time) {
		t.Errorf("Unmarshal() = %v", payload.Date)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `{"date":"2024-06-10"}` {
		t.Errorf("Marshal() = %s", out)
	}

	if err := json.Unmarshal([]byte(`{"date":"10/06/2024"}`), &payload); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("Unmarshal() malformed error = %v, want ErrInvalidDate", err)
	}
}

func TestDate_Scan(t *testing.T) {
	var d Date
	if err := d.Scan("2024-07-20"); err != nil || !d.Equal(NewDate(2024, 7, 20).Time) {
		t.Errorf("Scan(string) = %v, %v", d, err)
	}
	if err := d.Scan([]byte("2024-07-21")); err != nil || d.Day() != 21 {
		t.Errorf("Scan([]byte) = %v, %v", d, err)
	}
	if err := d.Scan(time.Date(2024, 7, 22, 15, 4, 5, 0, time.UTC)); err != nil || d.Day() != 22 || d.Hour() != 0 {
		t.Errorf("Scan(time.Time) = %v, %v", d, err)
	}
	if err := d.Scan(nil); err != nil || !d.IsEmpty() {
		t.Errorf("Scan(nil) = %v, %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(2024, 2)
	if first.Day() != 1 || last.Day() != 29 {
		t.Errorf("MonthBounds(2024, 2) = %s..%s", first, last)
	}
	if !NewDate(2024, 2, 29).InMonth(2024, 2) || NewDate(2024, 3, 1).InMonth(2024, 2) {
		t.Error("InMonth() mismatch")
	}
}

func TestDateIn(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	tokyo := time.FixedZone("JST", 9*60*60)
	instant := time.Date(2024, 8, 1, 1, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		loc  *time.Location
		want Date
	}{
		{"nil is UTC", nil, NewDate(2024, 8, 1)},
		{"UTC", time.UTC, NewDate(2024, 8, 1)},
		{"west of UTC is still the day before", saoPaulo, NewDate(2024, 7, 31)},
		{"east of UTC", tokyo, NewDate(2024, 8, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DateIn(instant, tt.loc)
			if !got.Equal(tt.want.Time) {
				t.Errorf("DateIn() = %s, want %s", got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("DateIn() location = %v, want UTC", got.Location())
			}
		})
	}
}
