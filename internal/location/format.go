package location

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is printed for absent or zero values.
const Placeholder = "---"

// TimestampLayout matches the year-first 24h layout of the ja-JP locale.
const TimestampLayout = "2006/01/02 15:04:05"

// Formatter renders samples for display. The zero value is not usable;
// construct with NewFormatter.
type Formatter struct {
	printer *message.Printer
	loc     *time.Location
}

// NewFormatter creates a formatter for the given language and time zone.
// A nil location means time.Local.
func NewFormatter(tag language.Tag, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{printer: message.NewPrinter(tag), loc: loc}
}

// DefaultFormatter formats with English number rules in local time.
func DefaultFormatter() *Formatter {
	return NewFormatter(language.English, nil)
}

// FormatCoordinate prints six decimals, or Placeholder for zero.
func (f *Formatter) FormatCoordinate(coord float64) string {
	if coord == 0 || math.IsNaN(coord) {
		return Placeholder
	}
	return f.printer.Sprintf("%.6f", coord)
}

// FormatAccuracy prints whole metres with an "m" suffix.
func (f *Formatter) FormatAccuracy(accuracy *float64) string {
	if accuracy == nil || *accuracy == 0 || math.IsNaN(*accuracy) {
		return Placeholder
	}
	return f.printer.Sprintf("%dm", int64(math.Round(*accuracy)))
}

// FormatTimestamp prints epoch millis in the formatter's time zone.
func (f *Formatter) FormatTimestamp(millis int64) string {
	if millis == 0 {
		return Placeholder
	}
	return time.UnixMilli(millis).In(f.loc).Format(TimestampLayout)
}

// FormatCount prints n with the language's digit grouping.
func (f *Formatter) FormatCount(n uint64) string {
	return f.printer.Sprintf("%d", n)
}
