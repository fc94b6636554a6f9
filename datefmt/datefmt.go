// Package datefmt formats instants the way CLDR date/time styles do. Date
// and clock patterns come from go-playground/locales; only the styles the
// site needs are exposed: medium and full dates, medium and full times.
package datefmt

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"golang.org/x/text/language"
)

// Style is a CLDR date or time style.
type Style int

const (
	Medium Style = iota
	Full
)

var matcher = language.NewMatcher(tags())

func tags() []language.Tag {
	out := make([]language.Tag, len(catalog))
	for i, l := range catalog {
		out[i] = l.tag
	}
	return out
}

// Formatter renders instants for one locale.
type Formatter struct {
	tag  language.Tag
	tr   locales.Translator
	conv conventions
}

// New returns a Formatter for the best supported match of locale (a BCP 47
// tag or a POSIX locale such as "fr_FR.UTF-8"). Unknown or empty locales
// fall back to English.
func New(locale string) *Formatter {
	tag, err := language.Parse(normalizePOSIX(locale))
	if err != nil {
		tag = language.English
	}
	_, idx, _ := matcher.Match(tag)
	l := catalog[idx]
	return &Formatter{tag: l.tag, tr: l.new(), conv: l.conv}
}

// Locale returns the matched locale.
func (f *Formatter) Locale() language.Tag {
	return f.tag
}

// Format renders t in its own location with the given date and time
// styles. The date style picks the glue between the two parts.
func (f *Formatter) Format(t time.Time, date, clock Style) string {
	glue := f.conv.mediumGlue
	if date == Full {
		glue = f.conv.fullGlue
	}
	return strings.NewReplacer(
		"{date}", f.date(t, date),
		"{time}", f.time(t, clock),
	).Replace(glue)
}

func (f *Formatter) date(t time.Time, s Style) string {
	if s == Full {
		return f.tr.FmtDateFull(t)
	}
	return f.tr.FmtDateMedium(t)
}

// time renders the clock. Medium and full differ only by the zone name,
// which medium omits.
func (f *Formatter) time(t time.Time, s Style) string {
	clock := f.tr.FmtTimeMedium(t)
	if i := strings.LastIndexByte(clock, ' '); i >= 0 {
		if p, ok := f.conv.periods[clock[i+1:]]; ok {
			clock = clock[:i+1] + p
		}
	}
	if s == Full {
		clock += " " + f.zoneName(t)
	}
	return clock
}

// zoneName spells UTC out and renders every other zone as a localized GMT
// offset ("GMT+02:00"), CLDR's fallback when no metazone name is known.
func (f *Formatter) zoneName(t time.Time) string {
	name, offset := t.Zone()
	if t.Location() == time.UTC || (name == "UTC" && offset == 0) {
		return f.conv.utcName
	}
	if offset == 0 {
		return f.conv.gmtPrefix
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return f.conv.gmtPrefix + sign + pad2(offset/3600) + ":" + pad2(offset%3600/60)
}

// HostLocale returns the locale from LC_ALL, LC_TIME or LANG, in that
// order, as a BCP 47 tag. "C", "POSIX" and unset yield "en".
func HostLocale() string {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return normalizePOSIX(v)
		}
	}
	return "en"
}

// normalizePOSIX turns "fr_FR.UTF-8@euro" into "fr-FR".
func normalizePOSIX(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	switch locale {
	case "", "C", "POSIX":
		return "en"
	}
	return strings.ReplaceAll(locale, "_", "-")
}

func pad2(n int) string {
	if n >= 0 && n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
