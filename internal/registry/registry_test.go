package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/translation-gateway/internal/registry"
)

func TestLookup_OpusModelWins(t *testing.T) {
	r := registry.Load()

	d, ok := r.Lookup("inference", "en", "es")
	require.True(t, ok)
	require.Equal(t, "Helsinki-NLP/opus-mt-en-es", d.Model)
	require.Empty(t, d.SourceTag)
	require.Empty(t, d.TargetTag)
}

func TestLookup_NLLBFallback(t *testing.T) {
	r := registry.Load()

	// No dedicated checkpoint exists for fr->ja.
	d, ok := r.Lookup("inference", "fr", "ja")
	require.True(t, ok)
	require.Equal(t, "facebook/nllb-200-distilled-600M", d.Model)
	require.Equal(t, "fra_Latn", d.SourceTag)
	require.Equal(t, "jpn_Jpan", d.TargetTag)
}

func TestLookup_HyphenatedCode(t *testing.T) {
	r := registry.Load()

	d, ok := r.Lookup("inference", "en", "zh-Hans")
	require.True(t, ok)
	require.Equal(t, "zho_Hans", d.TargetTag)

	d, ok = r.Lookup("inference", "zh-Hans", "en")
	require.True(t, ok)
	require.Equal(t, "zho_Hans", d.SourceTag)
}

func TestLookup_UnknownPair(t *testing.T) {
	r := registry.Load()

	_, ok := r.Lookup("inference", "en", "xx")
	require.False(t, ok)

	_, ok = r.Lookup("bergamot", "en", "es")
	require.False(t, ok)
}

func TestSupportedLanguages(t *testing.T) {
	r := registry.Load()

	codes := r.SupportedLanguages("inference")
	require.Contains(t, codes, "en")
	require.Contains(t, codes, "zh-Hans")
	require.Contains(t, codes, "bn")
	require.NotContains(t, codes, "xx")

	require.Empty(t, r.SupportedLanguages("unknown"))
}
