package services

import (
	"fmt"

	"financas/internal/core"
)

// Frequency names how often a recurring template repeats.
type Frequency string

const Monthly Frequency = "monthly"

// DuenessChecker decides whether a recurring template needs a new copy.
type DuenessChecker interface {
	// IsDue reports whether a template dated start needs a copy in the month
	// of today, given the date of its latest copy (empty when none exists).
	IsDue(lastCopy, today, start core.Date) bool
	// DueDate is the date of the copy for the month of today.
	DueDate(today, start core.Date) core.Date
}

// MonthlyChecker repeats a template on the same day every month. Days that
// do not exist in a month fall on its last day.
type MonthlyChecker struct{}

// IsDue returns true once the target day of a month after the template's
// own month has been reached and that month has no copy yet.
func (MonthlyChecker) IsDue(lastCopy, today, start core.Date) bool {
	if core.MonthsBetween(start, today) < 1 {
		return false
	}
	if !lastCopy.IsEmpty() && core.MonthsBetween(lastCopy, today) < 1 {
		return false
	}
	return today.Day() >= targetDay(start, today)
}

func (MonthlyChecker) DueDate(today, start core.Date) core.Date {
	return core.NewDate(today.Year(), today.Month(), targetDay(start, today))
}

func targetDay(start, today core.Date) int {
	day := start.Day()
	if last := core.DaysIn(today.Year(), today.Month()); day > last {
		return last
	}
	return day
}

var duenessStrategies = map[Frequency]DuenessChecker{
	Monthly: MonthlyChecker{},
}

// GetDuenessChecker returns the checker registered for a frequency.
func GetDuenessChecker(frequency Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return checker, nil
}
