package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// bibliographic maps ISO 639-2/B codes that are not canonical BCP 47 bases.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
	"cze": "cs",
	"gre": "el",
}

// common lists the languages whose English names are accepted as input.
var common = []language.Tag{
	language.English, language.German, language.French, language.Spanish,
	language.Italian, language.Portuguese, language.Japanese, language.Korean,
	language.Chinese, language.Russian, language.Arabic, language.Hindi,
	language.Dutch, language.Polish, language.Swedish, language.Danish,
	language.Norwegian, language.Finnish, language.Turkish, language.Czech,
	language.Greek, language.Ukrainian,
}

var byWord = func() map[string]language.Base {
	namer := display.English.Tags()
	words := make(map[string]language.Base, len(common))
	for _, tag := range common {
		base, _ := tag.Base()
		words[strings.ToLower(namer.Name(tag))] = base
	}
	return words
}()

func parseBase(code string) (language.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return language.Base{}, false
	}
	if alias, ok := bibliographic[code]; ok {
		code = alias
	}
	if base, ok := byWord[code]; ok {
		return base, true
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Base{}, false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return language.Base{}, false
	}
	return base, true
}

// Valid reports whether code names a known language.
func Valid(code string) bool {
	_, ok := parseBase(code)
	return ok
}

// ToISO2 converts a language code, tag, or English name to its ISO 639-1
// code. Languages without a two-letter code keep their three-letter form.
// Unrecognized input returns "".
func ToISO2(code string) string {
	base, ok := parseBase(code)
	if !ok {
		return ""
	}
	return base.String()
}

// ToISO3 converts a recognized language to ISO 639-2/T. Unrecognized input
// returns "und".
func ToISO3(code string) string {
	base, ok := parseBase(code)
	if !ok {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns the English name of a language. Empty input returns
// "Unknown" and unrecognized input is uppercased.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	base, ok := parseBase(trimmed)
	if !ok {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}
