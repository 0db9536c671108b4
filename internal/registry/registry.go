package registry

import (
	"fmt"
	"strings"
)

// Descriptor tells a provider which backend model serves a language pair and
// which code tags that model expects on the wire.
type Descriptor struct {
	Provider  string
	Model     string
	SourceTag string
	TargetTag string
}

// Registry maps (provider id, sourceLang, targetLang) to a backend descriptor.
// It is loaded once at startup from the static tables below so providers stay
// decoupled from any hardcoded catalog.
type Registry struct {
	byKey map[string]Descriptor
}

// Codes like zh-Hans contain hyphens, so the pair separator must not be one.
func key(provider, sourceLang, targetLang string) string {
	return fmt.Sprintf("%s:%s|%s", provider, sourceLang, targetLang)
}

// Load builds the registry from the static configuration tables.
func Load() *Registry {
	r := &Registry{byKey: make(map[string]Descriptor)}

	for pair, model := range opusModels {
		src, tgt, ok := splitPair(pair)
		if !ok {
			continue
		}
		r.byKey[key("inference", src, tgt)] = Descriptor{
			Provider: "inference",
			Model:    model,
		}
	}

	// NLLB covers pairs without a dedicated OPUS-MT model. It is a single
	// multilingual model addressed through FLORES-200 language+script tags.
	for code, tag := range floresTags {
		for other, otherTag := range floresTags {
			if code == other {
				continue
			}
			k := key("inference", code, other)
			if _, exists := r.byKey[k]; exists {
				continue
			}
			r.byKey[k] = Descriptor{
				Provider:  "inference",
				Model:     nllbModel,
				SourceTag: tag,
				TargetTag: otherTag,
			}
		}
	}

	return r
}

// Lookup returns the descriptor for a provider and language pair.
func (r *Registry) Lookup(provider, sourceLang, targetLang string) (Descriptor, bool) {
	d, ok := r.byKey[key(provider, sourceLang, targetLang)]
	return d, ok
}

// SupportedLanguages returns every language code a provider can serve, in no
// particular order.
func (r *Registry) SupportedLanguages(provider string) []string {
	seen := make(map[string]struct{})
	prefix := provider + ":"
	for k := range r.byKey {
		pair, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		if src, tgt, ok := strings.Cut(pair, "|"); ok {
			seen[src] = struct{}{}
			seen[tgt] = struct{}{}
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	return codes
}

func splitPair(pair string) (string, string, bool) {
	idx := strings.LastIndex(pair, "-")
	if idx <= 0 || idx == len(pair)-1 {
		return "", "", false
	}
	return pair[:idx], pair[idx+1:], true
}

const nllbModel = "facebook/nllb-200-distilled-600M"

// Helsinki-NLP OPUS-MT models for pairs with a dedicated checkpoint.
var opusModels = map[string]string{
	"en-hi": "Helsinki-NLP/opus-mt-en-hi",
	"en-es": "Helsinki-NLP/opus-mt-en-es",
	"en-fr": "Helsinki-NLP/opus-mt-en-fr",
	"en-de": "Helsinki-NLP/opus-mt-en-de",
	"en-it": "Helsinki-NLP/opus-mt-en-it",
	"en-nl": "Helsinki-NLP/opus-mt-en-nl",
	"en-ru": "Helsinki-NLP/opus-mt-en-ru",
	"en-ar": "Helsinki-NLP/opus-mt-en-ar",
	"en-he": "Helsinki-NLP/opus-mt-en-he",
	"en-tr": "Helsinki-NLP/opus-mt-en-tr",
	"en-vi": "Helsinki-NLP/opus-mt-en-vi",
	"en-id": "Helsinki-NLP/opus-mt-en-id",
	"en-ko": "Helsinki-NLP/opus-mt-en-ko",
	"en-ja": "Helsinki-NLP/opus-mt-en-jap",
	"en-th": "Helsinki-NLP/opus-mt-en-th",

	"hi-en": "Helsinki-NLP/opus-mt-hi-en",
	"es-en": "Helsinki-NLP/opus-mt-es-en",
	"fr-en": "Helsinki-NLP/opus-mt-fr-en",
	"de-en": "Helsinki-NLP/opus-mt-de-en",
	"it-en": "Helsinki-NLP/opus-mt-it-en",
	"nl-en": "Helsinki-NLP/opus-mt-nl-en",
	"ru-en": "Helsinki-NLP/opus-mt-ru-en",
	"ar-en": "Helsinki-NLP/opus-mt-ar-en",
	"tr-en": "Helsinki-NLP/opus-mt-tr-en",
	"ko-en": "Helsinki-NLP/opus-mt-ko-en",
	"ja-en": "Helsinki-NLP/opus-mt-jap-en",

	"es-fr": "Helsinki-NLP/opus-mt-es-fr",
	"fr-es": "Helsinki-NLP/opus-mt-fr-es",
	"es-it": "Helsinki-NLP/opus-mt-es-it",
	"it-es": "Helsinki-NLP/opus-mt-it-es",
	"es-pt": "Helsinki-NLP/opus-mt-es-pt",
	"pt-es": "Helsinki-NLP/opus-mt-pt-es",
}

// FLORES-200 language+script tags used by the NLLB multilingual model.
var floresTags = map[string]string{
	"en":      "eng_Latn",
	"es":      "spa_Latn",
	"fr":      "fra_Latn",
	"de":      "deu_Latn",
	"it":      "ita_Latn",
	"pt":      "por_Latn",
	"nl":      "nld_Latn",
	"pl":      "pol_Latn",
	"ru":      "rus_Cyrl",
	"uk":      "ukr_Cyrl",
	"ar":      "arb_Arab",
	"fa":      "pes_Arab",
	"he":      "heb_Hebr",
	"tr":      "tur_Latn",
	"hi":      "hin_Deva",
	"mr":      "mar_Deva",
	"bn":      "ben_Beng",
	"ta":      "tam_Taml",
	"te":      "tel_Telu",
	"gu":      "guj_Gujr",
	"kn":      "kan_Knda",
	"ml":      "mal_Mlym",
	"pa":      "pan_Guru",
	"or":      "ory_Orya",
	"zh-Hans": "zho_Hans",
	"ja":      "jpn_Jpan",
	"ko":      "kor_Hang",
	"th":      "tha_Thai",
	"vi":      "vie_Latn",
	"id":      "ind_Latn",
	"ms":      "zsm_Latn",
	"tl":      "fil_Latn",
}
