package timezone

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// Load liefert die Zeitzone name. Ist name leer, wird die TZ-Umgebungsvariable
// gelesen; ohne beide gilt die lokale Zeit des Systems.
func Load(name string) *time.Location {
	if name == "" {
		name = os.Getenv("TZ")
	}
	if name == "" {
		return time.Local
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warnf("Failed to load timezone %s: %v. Falling back to UTC.", name, err)
		return time.UTC
	}
	return loc
}

// Formatter rechnet den Zeitstempel jedes Log-Eintrags in Location um,
// bevor der eigentliche Formatter ihn schreibt.
type Formatter struct {
	Location *time.Location
	Next     log.Formatter
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	if f.Location != nil {
		entry.Time = entry.Time.In(f.Location)
	}
	return f.Next.Format(entry)
}
