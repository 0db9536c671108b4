package scoring_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/translation-gateway/internal/scoring"
)

func TestScore_JapaneseTranslation(t *testing.T) {
	s := scoring.Score("Loading...", "読み込み中", "en", "ja", 0.5)

	require.Equal(t, 1.0, s.Encoding)
	require.Equal(t, 1.0, s.ScriptConsistency)
	require.Equal(t, 1.0, s.Confidence)
	require.GreaterOrEqual(t, s.Overall, 0.5)
	require.True(t, s.Passes)
}

func TestScore_IsDeterministic(t *testing.T) {
	a := scoring.Score("Good morning", "Buenos días", "en", "es", 0.5)
	b := scoring.Score("Good morning", "Buenos días", "en", "es", 0.5)

	require.Equal(t, a, b)
}

func TestScore_IdenticalCandidatePenalized(t *testing.T) {
	identical := scoring.Score("Hello", "Hello", "en", "es", 0.5)
	translated := scoring.Score("Hello", "Holaa", "en", "es", 0.5)

	require.InDelta(t, 0.3, identical.Confidence, 1e-9)
	require.Equal(t, 1.0, translated.Confidence)
	require.Less(t, identical.Overall, translated.Overall)
}

func TestScore_ErrorPlaceholderPenalized(t *testing.T) {
	s := scoring.Score("Good morning", "Error: model not loaded", "en", "es", 0.5)

	require.InDelta(t, 0.2, s.Confidence, 1e-9)
	require.NotEmpty(t, s.Issues)
}

func TestScore_RepetitionPenalized(t *testing.T) {
	repeated := strings.Repeat("hola ", 10)
	s := scoring.Score("A long enough source sentence for this check", repeated, "en", "es", 0.5)

	require.InDelta(t, 0.5, s.Confidence, 1e-9)
}

func TestScore_EncodingSubScore(t *testing.T) {
	t.Run("clean text scores 1.0", func(t *testing.T) {
		s := scoring.Score("Hello", "Bonjour", "en", "fr", 0.5)
		require.Equal(t, 1.0, s.Encoding)
	})

	t.Run("replacement characters score 0.5", func(t *testing.T) {
		s := scoring.Score("Hello", "Bonj�ur", "en", "fr", 0.5)
		require.Equal(t, 0.5, s.Encoding)
	})

	t.Run("empty candidate scores 0.0", func(t *testing.T) {
		s := scoring.Score("Hello", "", "en", "fr", 0.5)
		require.Equal(t, 0.0, s.Encoding)
	})

	t.Run("invalid utf8 scores 0.0", func(t *testing.T) {
		s := scoring.Score("Hello", string([]byte{0xff, 0xfe}), "en", "fr", 0.5)
		require.Equal(t, 0.0, s.Encoding)
	})
}

func TestScore_ScriptConsistency(t *testing.T) {
	t.Run("all characters in expected block", func(t *testing.T) {
		s := scoring.Score("Hello world", "Привет мир", "en", "ru", 0.5)
		require.Equal(t, 1.0, s.ScriptConsistency)
	})

	t.Run("decreases as foreign characters increase", func(t *testing.T) {
		pure := scoring.Score("Hello world", "Привет мир", "en", "ru", 0.5)
		mixed := scoring.Score("Hello world", "Привет dear мир", "en", "ru", 0.5)
		mostly := scoring.Score("Hello world", "hello dear мир", "en", "ru", 0.5)

		require.Greater(t, pure.ScriptConsistency, mixed.ScriptConsistency)
		require.Greater(t, mixed.ScriptConsistency, mostly.ScriptConsistency)
	})

	t.Run("unknown script metadata is neutral", func(t *testing.T) {
		s := scoring.Score("Hello", "Saluton", "en", "xx", 0.5)
		require.Equal(t, 0.8, s.ScriptConsistency)
	})
}

func TestScore_RTLPenalty(t *testing.T) {
	// A long Latin-script candidate for an Arabic target cannot be right.
	s := scoring.Score("Good morning to everyone", "Good morning to everyone friends", "en", "ar", 0.5)
	require.LessOrEqual(t, s.LanguageMatch, 0.3)

	arabic := scoring.Score("Good morning", "صباح الخير", "en", "ar", 0.5)
	require.Greater(t, arabic.LanguageMatch, 0.3)
}

func TestScore_LengthRatio(t *testing.T) {
	t.Run("ratio inside band scores 1.0", func(t *testing.T) {
		s := scoring.Score("Good morning", "Buenos días", "en", "es", 0.5)
		require.Equal(t, 1.0, s.LengthRatio)
	})

	t.Run("extreme expansion penalized", func(t *testing.T) {
		s := scoring.Score("Hi", strings.Repeat("palabras ", 20), "en", "es", 0.5)
		require.Less(t, s.LengthRatio, 1.0)
	})
}
