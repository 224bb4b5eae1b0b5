package locale

import (
	"fmt"
	"time"
)

type dateForms struct {
	months [12]string
	// full is used in replies and listings, short in reminders.
	full  func(t time.Time, month string) string
	short func(t time.Time, month string) string
}

var dateTable = map[Tag]dateForms{
	ES: {
		months: [12]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
		full: func(t time.Time, m string) string {
			return fmt.Sprintf("%d de %s, %d a las %s (España)", t.Day(), m, t.Year(), t.Format("15:04"))
		},
		short: func(t time.Time, m string) string {
			return fmt.Sprintf("%d de %s a las %s", t.Day(), m, t.Format("15:04"))
		},
	},
	EN: {
		months: [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		full: func(t time.Time, m string) string {
			return fmt.Sprintf("%s %s, %d at %s GMT", m, t.Format("02"), t.Year(), t.Format("15:04"))
		},
		short: func(t time.Time, m string) string {
			return fmt.Sprintf("%s %s at %s GMT", m, t.Format("02"), t.Format("15:04"))
		},
	},
	PT: {
		months: [12]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
		full: func(t time.Time, m string) string {
			return fmt.Sprintf("%s de %s, %d às %s (Portugal)", t.Format("02"), m, t.Year(), t.Format("15:04"))
		},
		short: func(t time.Time, m string) string {
			return fmt.Sprintf("%s de %s às %s", t.Format("02"), m, t.Format("15:04"))
		},
	},
}

func forms(tag Tag) dateForms {
	if f, ok := dateTable[tag]; ok {
		return f
	}
	return dateTable[Default]
}

// FormatDate renders t (already in the display zone) in the long form.
func FormatDate(tag Tag, t time.Time) string {
	f := forms(tag)
	return f.full(t, f.months[t.Month()-1])
}

// FormatShortDate omits the year.
func FormatShortDate(tag Tag, t time.Time) string {
	f := forms(tag)
	return f.short(t, f.months[t.Month()-1])
}
