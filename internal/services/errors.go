package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalService marks timeouts, transport failures, and 5xx responses
	// from any backend (LLM, MT, TTS, diarization, voice catalog).
	ErrExternalService = errors.New("external service error")
	// ErrNoVoiceForLanguage is fatal: no catalog voice supports the target language.
	ErrNoVoiceForLanguage = errors.New("no voice for language")
	// ErrEmptyInput marks inputs with no usable content. It degrades, never fails a job.
	ErrEmptyInput = errors.New("empty input")
	// ErrTranslationQualityReject marks translations discarded by a quality predicate.
	ErrTranslationQualityReject = errors.New("translation quality reject")
	ErrValidation               = errors.New("validation error")
	ErrConfiguration            = errors.New("configuration error")
	ErrTimeout                  = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify returns the taxonomy label for err, used as a log field and metric label.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNoVoiceForLanguage):
		return "no_voice_for_language"
	case errors.Is(err, ErrTranslationQualityReject):
		return "translation_quality_reject"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExternalService):
		return "external_service"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
