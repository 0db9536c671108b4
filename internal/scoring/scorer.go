package scoring

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tesseract-hub/translation-gateway/internal/languages"
)

// Sub-score weights. They sum to 1.0.
const (
	weightLengthRatio       = 0.15
	weightEncoding          = 0.20
	weightScriptConsistency = 0.25
	weightLanguageMatch     = 0.25
	weightConfidence        = 0.15
)

// DefaultThreshold is the minimum overall score a translation must reach to
// pass without a warning.
const DefaultThreshold = 0.5

// Acceptable band for the candidate/source length ratio.
const (
	minLengthRatio = 0.3
	maxLengthRatio = 3.0
)

// QualityScore is a deterministic heuristic estimate of how plausible a
// candidate translation is. It is not a guarantee of correctness.
type QualityScore struct {
	Overall           float64  `json:"overall"`
	LengthRatio       float64  `json:"length_ratio"`
	Encoding          float64  `json:"encoding"`
	ScriptConsistency float64  `json:"script_consistency"`
	LanguageMatch     float64  `json:"language_match"`
	Confidence        float64  `json:"confidence"`
	Passes            bool     `json:"passes"`
	Issues            []string `json:"issues,omitempty"`
}

// errorPrefixes are placeholder strings backends sometimes emit instead of a
// translation.
var errorPrefixes = []string{
	"error",
	"failed",
	"unable to translate",
	"translation unavailable",
	"[object object]",
}

// Score evaluates a candidate translation against its source text. It is a
// pure function: identical inputs always yield an identical QualityScore.
func Score(sourceText, candidateText, sourceLang, targetLang string, threshold float64) QualityScore {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	s := QualityScore{
		LengthRatio:       lengthRatioScore(sourceText, candidateText),
		Encoding:          encodingScore(candidateText),
		ScriptConsistency: scriptConsistencyScore(candidateText, targetLang),
		Confidence:        confidenceScore(sourceText, candidateText),
	}
	s.LanguageMatch = languageMatchScore(s.ScriptConsistency, candidateText, targetLang)

	s.Overall = weightLengthRatio*s.LengthRatio +
		weightEncoding*s.Encoding +
		weightScriptConsistency*s.ScriptConsistency +
		weightLanguageMatch*s.LanguageMatch +
		weightConfidence*s.Confidence
	s.Passes = s.Overall >= threshold
	s.Issues = collectIssues(s)

	return s
}

// lengthRatioScore is 1.0 inside the acceptable band and falls off linearly
// toward 0 the further the ratio leaves it.
func lengthRatioScore(source, candidate string) float64 {
	srcLen := utf8.RuneCountInString(source)
	candLen := utf8.RuneCountInString(candidate)
	if srcLen == 0 || candLen == 0 {
		return 0
	}

	ratio := float64(candLen) / float64(srcLen)
	switch {
	case ratio >= minLengthRatio && ratio <= maxLengthRatio:
		return 1.0
	case ratio < minLengthRatio:
		return ratio / minLengthRatio
	default:
		score := 1.0 - (ratio-maxLengthRatio)/maxLengthRatio
		if score < 0 {
			return 0
		}
		return score
	}
}

// encodingScore is 1.0 for clean UTF-8, 0.5 when replacement characters show
// partial corruption, 0.0 on invalid bytes or empty text.
func encodingScore(candidate string) float64 {
	if candidate == "" || !utf8.ValidString(candidate) {
		return 0
	}
	if strings.ContainsRune(candidate, utf8.RuneError) {
		return 0.5
	}
	return 1.0
}

// scriptConsistencyScore measures the fraction of candidate characters that
// fall inside the target language's expected Unicode ranges. Whitespace,
// punctuation, digits and symbols are shared across scripts and don't count.
func scriptConsistencyScore(candidate, targetLang string) float64 {
	info, known := languages.Normalize(targetLang)
	if !known || info.Script == languages.ScriptUnknown {
		return 0.8
	}

	var total, matched int
	for _, r := range candidate {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r) || unicode.IsSymbol(r) {
			continue
		}
		total++
		if languages.InScript(r, info.Script) {
			matched++
		}
	}
	if total == 0 {
		return 0.8
	}

	fraction := float64(matched) / float64(total)
	switch {
	case fraction >= 0.8:
		return 1.0
	case fraction >= 0.5:
		return 0.7
	case fraction >= 0.3:
		return 0.4
	default:
		return 0.1
	}
}

// languageMatchScore derives from script consistency; RTL targets additionally
// require at least one right-to-left character in non-trivial candidates.
func languageMatchScore(scriptConsistency float64, candidate, targetLang string) float64 {
	score := scriptConsistency * 0.9

	if languages.IsRTL(targetLang) &&
		utf8.RuneCountInString(candidate) > 10 &&
		!languages.HasRTLRunes(candidate) {
		if score > 0.3 {
			score = 0.3
		}
	}

	return score
}

// confidenceScore starts at 1.0 and is multiplied down for signs the backend
// returned a no-op, an error placeholder, or degenerate repetition.
func confidenceScore(source, candidate string) float64 {
	confidence := 1.0

	if candidate == source && utf8.RuneCountInString(source) >= 5 {
		confidence *= 0.3
	}

	lower := strings.ToLower(strings.TrimSpace(candidate))
	for _, prefix := range errorPrefixes {
		if strings.HasPrefix(lower, prefix) {
			confidence *= 0.2
			break
		}
	}

	if utf8.RuneCountInString(candidate) > 20 {
		if uniqueWordRatio(candidate) < 0.3 {
			confidence *= 0.5
		}
	}

	return confidence
}

func uniqueWordRatio(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 1.0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[strings.ToLower(w)] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}

func collectIssues(s QualityScore) []string {
	var issues []string
	if s.LengthRatio < 0.5 {
		issues = append(issues, fmt.Sprintf("suspicious length ratio (score %.2f)", s.LengthRatio))
	}
	if s.Encoding < 1.0 {
		issues = append(issues, fmt.Sprintf("encoding anomalies detected (score %.2f)", s.Encoding))
	}
	if s.ScriptConsistency < 0.7 {
		issues = append(issues, fmt.Sprintf("characters outside expected script (score %.2f)", s.ScriptConsistency))
	}
	if s.LanguageMatch < 0.5 {
		issues = append(issues, fmt.Sprintf("candidate unlikely to be in target language (score %.2f)", s.LanguageMatch))
	}
	if s.Confidence < 0.5 {
		issues = append(issues, fmt.Sprintf("low confidence in translation output (score %.2f)", s.Confidence))
	}
	return issues
}
