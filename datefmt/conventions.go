package datefmt

import (
	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/it"
	"github.com/go-playground/locales/ja"
	"github.com/go-playground/locales/nl"
	"github.com/go-playground/locales/pl"
	"github.com/go-playground/locales/pt"
	"github.com/go-playground/locales/ru"
	"github.com/go-playground/locales/sv"
	"github.com/go-playground/locales/zh"
	"golang.org/x/text/language"
)

// conventions holds what the CLDR tables in locales do not carry: the UTC
// zone name, the GMT offset prefix and how date and time are joined.
type conventions struct {
	utcName    string
	gmtPrefix  string
	mediumGlue string // "{date}" and "{time}" placeholders
	fullGlue   string
	periods    map[string]string // day period overrides, keyed by the translator's label
}

var defaultConventions = conventions{
	utcName:    "UTC",
	gmtPrefix:  "GMT",
	mediumGlue: "{date}, {time}",
	fullGlue:   "{date}, {time}",
}

type locale struct {
	tag  language.Tag
	new  func() locales.Translator
	conv conventions
}

// catalog is ordered: the first entry is the fallback.
var catalog = []locale{
	{language.English, en.New, conventions{
		utcName:    "Coordinated Universal Time",
		gmtPrefix:  "GMT",
		mediumGlue: "{date}, {time}",
		fullGlue:   "{date} at {time}",
		periods:    map[string]string{"am": "AM", "pm": "PM"},
	}},
	{language.French, fr.New, conventions{
		utcName:    "temps universel coordonné",
		gmtPrefix:  "UTC",
		mediumGlue: "{date} {time}",
		fullGlue:   "{date} à {time}",
	}},
	{language.German, de.New, conventions{
		utcName:    "Koordinierte Weltzeit",
		gmtPrefix:  "GMT",
		mediumGlue: "{date}, {time}",
		fullGlue:   "{date} um {time}",
	}},
	{language.Spanish, es.New, conventions{
		utcName:    "tiempo universal coordinado",
		gmtPrefix:  "GMT",
		mediumGlue: "{date}, {time}",
		fullGlue:   "{date}, {time}",
	}},
	{language.Italian, it.New, conventions{
		utcName:    "Tempo coordinato universale",
		gmtPrefix:  "GMT",
		mediumGlue: "{date}, {time}",
		fullGlue:   "{date} alle ore {time}",
	}},
	{language.Portuguese, pt.New, conventions{
		utcName:    "Horário Universal Coordenado",
		gmtPrefix:  "GMT",
		mediumGlue: "{date}, {time}",
		fullGlue:   "{date} às {time}",
	}},
	{language.Dutch, nl.New, conventions{
		utcName:    "gecoördineerde wereldtijd",
		gmtPrefix:  "GMT",
		mediumGlue: "{date}, {time}",
		fullGlue:   "{date} om {time}",
	}},
	{language.Polish, pl.New, defaultConventions},
	{language.Swedish, sv.New, defaultConventions},
	{language.Russian, ru.New, defaultConventions},
	{language.Japanese, ja.New, conventions{
		utcName:    "協定世界時",
		gmtPrefix:  "GMT",
		mediumGlue: "{date} {time}",
		fullGlue:   "{date} {time}",
	}},
	{language.Chinese, zh.New, conventions{
		utcName:    "协调世界时",
		gmtPrefix:  "GMT",
		mediumGlue: "{date} {time}",
		fullGlue:   "{date} {time}",
	}},
}
