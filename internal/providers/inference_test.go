package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/translation-gateway/internal/providers"
	"github.com/tesseract-hub/translation-gateway/internal/registry"
)

func newInference(t *testing.T, handler http.Handler) *providers.InferenceProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return providers.NewInferenceProvider(providers.InferenceConfig{
		BaseURL: srv.URL,
		Weight:  50,
	}, registry.Load(), testLogger())
}

func TestInference_TranslateOpusModel(t *testing.T) {
	p := newInference(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The en->es pair routes to its registered OPUS-MT model.
		require.Equal(t, "/Helsinki-NLP/opus-mt-en-es", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Hello", req["inputs"])

		json.NewEncoder(w).Encode([]map[string]string{{"translation_text": "Hola"}})
	}))

	result, err := p.Translate(context.Background(), "Hello", "en", "es")
	require.NoError(t, err)
	require.Equal(t, "Hola", result.TranslatedText)
	require.Equal(t, "inference", result.Provider)
}

func TestInference_GeneratedTextShape(t *testing.T) {
	p := newInference(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"generated_text": "Hola"})
	}))

	result, err := p.Translate(context.Background(), "Hello", "en", "es")
	require.NoError(t, err)
	require.Equal(t, "Hola", result.TranslatedText)
}

func TestInference_ModelLoading(t *testing.T) {
	p := newInference(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"error": "model is loading", "estimated_time": 20.0})
	}))

	_, err := p.Translate(context.Background(), "Hello", "en", "es")
	require.Error(t, err)
	require.Equal(t, providers.ErrBackendUnavailable, providers.KindOf(err))

	var pe *providers.Error
	require.ErrorAs(t, err, &pe)
	require.True(t, pe.Retryable())
	// A loading model is not a backend failure; no backoff applies.
	require.True(t, p.IsAvailable(context.Background()))
}

func TestInference_UnsupportedPair(t *testing.T) {
	p := newInference(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an unregistered pair")
	}))

	_, err := p.Translate(context.Background(), "Hello", "en", "xx")
	require.Error(t, err)
	require.Equal(t, providers.ErrUnsupportedPair, providers.KindOf(err))
}

func TestInference_MalformedResponse(t *testing.T) {
	p := newInference(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": true}`))
	}))

	_, err := p.Translate(context.Background(), "Hello", "en", "es")
	require.Error(t, err)
	require.Equal(t, providers.ErrMalformedResponse, providers.KindOf(err))
}

func TestInference_NLLBParameters(t *testing.T) {
	p := newInference(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Pairs without a dedicated model fall back to the multilingual
		// model and carry full language+script tags.
		require.Equal(t, "/facebook/nllb-200-distilled-600M", r.URL.Path)
		params, ok := req["parameters"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "fra_Latn", params["src_lang"])
		require.Equal(t, "jpn_Jpan", params["tgt_lang"])

		json.NewEncoder(w).Encode([]map[string]string{{"translation_text": "読み込み中"}})
	}))

	result, err := p.Translate(context.Background(), "Chargement...", "fr", "ja")
	require.NoError(t, err)
	require.Equal(t, "読み込み中", result.TranslatedText)
}

func TestInference_BatchRunsPerItem(t *testing.T) {
	p := newInference(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode([]map[string]string{{"translation_text": "es:" + req["inputs"].(string)}})
	}))

	require.False(t, p.SupportsBatch())

	results, err := p.TranslateBatch(context.Background(), []string{"one", "two", "three"}, "en", "es")
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "es:one", results[0].TranslatedText)
	require.Equal(t, "es:three", results[2].TranslatedText)
}

func TestInference_BatchFailsWhenAnyItemFails(t *testing.T) {
	p := newInference(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["inputs"] == "two" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]map[string]string{{"translation_text": "es:" + req["inputs"].(string)}})
	}))

	// A partial batch would hand back zero-value slots for the failed
	// items; the whole call fails instead.
	_, err := p.TranslateBatch(context.Background(), []string{"one", "two", "three"}, "en", "es")
	require.Error(t, err)
	require.Equal(t, providers.ErrBackendUnavailable, providers.KindOf(err))
	require.Contains(t, err.Error(), "1 of 3 batch items failed")
}
