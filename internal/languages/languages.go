package languages

import (
	"strings"
	"unicode"
)

// Script identifies the writing system a language is expected to use.
type Script string

const (
	ScriptLatin      Script = "latin"
	ScriptCyrillic   Script = "cyrillic"
	ScriptArabic     Script = "arabic"
	ScriptHebrew     Script = "hebrew"
	ScriptDevanagari Script = "devanagari"
	ScriptJapanese   Script = "japanese"
	ScriptHan        Script = "han"
	ScriptHangul     Script = "hangul"
	ScriptThai       Script = "thai"
	ScriptGreek      Script = "greek"
	ScriptTamil      Script = "tamil"
	ScriptTelugu     Script = "telugu"
	ScriptBengali    Script = "bengali"
	ScriptGujarati   Script = "gujarati"
	ScriptGurmukhi   Script = "gurmukhi"
	ScriptKannada    Script = "kannada"
	ScriptMalayalam  Script = "malayalam"
	ScriptOriya      Script = "oriya"
	ScriptUnknown    Script = ""
)

// Info describes a normalized language code and its script metadata.
type Info struct {
	Code   string
	Script Script
	RTL    bool
}

// codeAliases maps common frontend language code variants to the codes the
// providers expect. LibreTranslate only ships Simplified Chinese.
var codeAliases = map[string]string{
	"zh":      "zh-Hans",
	"zh-cn":   "zh-Hans",
	"zh-tw":   "zh-Hans",
	"zh-hant": "zh-Hans",
	"zh-hans": "zh-Hans",
	"in":      "id",
	"iw":      "he",
	"jp":      "ja",
	"pt-br":   "pt",
	"pt-pt":   "pt",
	"en-us":   "en",
	"en-gb":   "en",
}

var catalog = map[string]Info{
	"en":      {Code: "en", Script: ScriptLatin},
	"es":      {Code: "es", Script: ScriptLatin},
	"fr":      {Code: "fr", Script: ScriptLatin},
	"de":      {Code: "de", Script: ScriptLatin},
	"it":      {Code: "it", Script: ScriptLatin},
	"pt":      {Code: "pt", Script: ScriptLatin},
	"nl":      {Code: "nl", Script: ScriptLatin},
	"pl":      {Code: "pl", Script: ScriptLatin},
	"cs":      {Code: "cs", Script: ScriptLatin},
	"et":      {Code: "et", Script: ScriptLatin},
	"tr":      {Code: "tr", Script: ScriptLatin},
	"vi":      {Code: "vi", Script: ScriptLatin},
	"id":      {Code: "id", Script: ScriptLatin},
	"ms":      {Code: "ms", Script: ScriptLatin},
	"tl":      {Code: "tl", Script: ScriptLatin},
	"ru":      {Code: "ru", Script: ScriptCyrillic},
	"uk":      {Code: "uk", Script: ScriptCyrillic},
	"el":      {Code: "el", Script: ScriptGreek},
	"ar":      {Code: "ar", Script: ScriptArabic, RTL: true},
	"fa":      {Code: "fa", Script: ScriptArabic, RTL: true},
	"ur":      {Code: "ur", Script: ScriptArabic, RTL: true},
	"he":      {Code: "he", Script: ScriptHebrew, RTL: true},
	"hi":      {Code: "hi", Script: ScriptDevanagari},
	"mr":      {Code: "mr", Script: ScriptDevanagari},
	"ne":      {Code: "ne", Script: ScriptDevanagari},
	"ta":      {Code: "ta", Script: ScriptTamil},
	"te":      {Code: "te", Script: ScriptTelugu},
	"bn":      {Code: "bn", Script: ScriptBengali},
	"gu":      {Code: "gu", Script: ScriptGujarati},
	"pa":      {Code: "pa", Script: ScriptGurmukhi},
	"kn":      {Code: "kn", Script: ScriptKannada},
	"ml":      {Code: "ml", Script: ScriptMalayalam},
	"or":      {Code: "or", Script: ScriptOriya},
	"zh-Hans": {Code: "zh-Hans", Script: ScriptHan},
	"ja":      {Code: "ja", Script: ScriptJapanese},
	"ko":      {Code: "ko", Script: ScriptHangul},
	"th":      {Code: "th", Script: ScriptThai},
}

// Normalize validates a raw language code and returns its canonical form with
// script and direction metadata. Unknown codes come back with the trimmed
// lowercase code, ScriptUnknown and ok=false so callers can degrade gracefully.
func Normalize(code string) (Info, bool) {
	c := strings.ToLower(strings.TrimSpace(code))
	if alias, ok := codeAliases[c]; ok {
		c = strings.ToLower(alias)
	}
	if info, ok := catalog[c]; ok {
		return info, true
	}
	// Catalog keys are lowercase except regioned codes like zh-Hans.
	for key, info := range catalog {
		if strings.EqualFold(key, c) {
			return info, true
		}
	}
	return Info{Code: c, Script: ScriptUnknown}, false
}

// IsRTL reports whether the language is written right to left.
func IsRTL(code string) bool {
	info, _ := Normalize(code)
	return info.RTL
}

var scriptRanges = map[Script][]*unicode.RangeTable{
	ScriptLatin:      {unicode.Latin},
	ScriptCyrillic:   {unicode.Cyrillic},
	ScriptArabic:     {unicode.Arabic},
	ScriptHebrew:     {unicode.Hebrew},
	ScriptDevanagari: {unicode.Devanagari},
	ScriptJapanese:   {unicode.Hiragana, unicode.Katakana, unicode.Han},
	ScriptHan:        {unicode.Han},
	ScriptHangul:     {unicode.Hangul},
	ScriptThai:       {unicode.Thai},
	ScriptGreek:      {unicode.Greek},
	ScriptTamil:      {unicode.Tamil},
	ScriptTelugu:     {unicode.Telugu},
	ScriptBengali:    {unicode.Bengali},
	ScriptGujarati:   {unicode.Gujarati},
	ScriptGurmukhi:   {unicode.Gurmukhi},
	ScriptKannada:    {unicode.Kannada},
	ScriptMalayalam:  {unicode.Malayalam},
	ScriptOriya:      {unicode.Oriya},
}

// Ranges returns the Unicode range tables for a script, or nil when the
// script is unknown.
func Ranges(s Script) []*unicode.RangeTable {
	return scriptRanges[s]
}

// InScript reports whether the rune belongs to any of the script's ranges.
func InScript(r rune, s Script) bool {
	for _, table := range scriptRanges[s] {
		if unicode.In(r, table) {
			return true
		}
	}
	return false
}

var rtlRanges = []*unicode.RangeTable{unicode.Arabic, unicode.Hebrew, unicode.Syriac, unicode.Thaana}

// HasRTLRunes reports whether the text contains any right-to-left script
// characters.
func HasRTLRunes(text string) bool {
	for _, r := range text {
		for _, table := range rtlRanges {
			if unicode.In(r, table) {
				return true
			}
		}
	}
	return false
}
