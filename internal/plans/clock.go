package plans

import "time"

// Meal slots, named the way the plans store them.
const (
	MealBreakfast = "Café da Manhã"
	MealLunch     = "Almoço"
	MealSnack     = "Lanche da Tarde"
	MealDinner    = "Jantar"
)

// weekdays in plan notation, indexed by time.Weekday.
var weekdays = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

// Weekday returns the plan day-of-week notation for a time.
func Weekday(t time.Time) string {
	return weekdays[t.Weekday()]
}

// MealSlot buckets an hour of day into the meal slot a user is most
// likely asking about.
func MealSlot(hour int) string {
	switch {
	case hour < 10:
		return MealBreakfast
	case hour < 14:
		return MealLunch
	case hour < 18:
		return MealSnack
	default:
		return MealDinner
	}
}
