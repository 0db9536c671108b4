package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies provider failures so the orchestrator can reason about
// them without parsing messages.
type ErrorKind string

const (
	ErrTimeout            ErrorKind = "timeout"
	ErrBackendUnavailable ErrorKind = "backend_unavailable"
	ErrUnsupportedPair    ErrorKind = "unsupported_language_pair"
	ErrMalformedResponse  ErrorKind = "malformed_response"
)

// Error is a failure at the provider boundary. Exactly one of a translation or
// an Error crosses back to the orchestrator.
type Error struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying on the same
// provider (a backend that is still loading its model may recover).
func (e *Error) Retryable() bool {
	return e.Kind == ErrBackendUnavailable || e.Kind == ErrTimeout
}

func newError(provider string, kind ErrorKind, err error) *Error {
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the error kind from any error in the chain, defaulting to
// backend_unavailable for unclassified failures.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrBackendUnavailable
}

// Result is a successful translation from one provider.
type Result struct {
	TranslatedText string        `json:"translated_text"`
	SourceLang     string        `json:"source_lang"`
	TargetLang     string        `json:"target_lang"`
	Provider       string        `json:"provider"`
	Latency        time.Duration `json:"latency"`
}

// Provider is the uniform contract every translation backend is wrapped in.
type Provider interface {
	// Name returns the provider's identifier.
	Name() string

	// Weight returns the provider's configured priority weight (higher wins).
	Weight() int

	// Timeout returns the per-call timeout for this backend.
	Timeout() time.Duration

	// IsAvailable reports whether the backend can currently serve requests.
	IsAvailable(ctx context.Context) bool

	// SupportsLanguagePair reports whether the backend can translate
	// sourceLang into targetLang.
	SupportsLanguagePair(sourceLang, targetLang string) bool

	// SupportedLanguages returns the language codes the backend serves.
	SupportedLanguages(ctx context.Context) []string

	// Translate translates text from sourceLang to targetLang.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (*Result, error)

	// SupportsBatch reports whether the backend has a native batch endpoint.
	// When false the orchestrator falls back to per-item calls.
	SupportsBatch() bool

	// TranslateBatch translates multiple texts in one backend call.
	TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]Result, error)
}
