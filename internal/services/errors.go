package services

import (
	"fmt"
	"strings"
)

type ExtractionErrorKind string

const (
	MalformedContainer    ExtractionErrorKind = "malformed_container"
	NoTextFound           ExtractionErrorKind = "no_text_found"
	NoOCRServiceAvailable ExtractionErrorKind = "no_ocr_service_available"
	AllProvidersFailed    ExtractionErrorKind = "all_providers_failed"
	UnsupportedMediaType  ExtractionErrorKind = "unsupported_media_type"
)

// ExtractionError is a user-actionable failure to recover text from a document.
// Services carries the provider names relevant to the kind: the available
// ones for NoOCRServiceAvailable (always empty) and the attempted ones for
// AllProvidersFailed. Unavailable lists the providers that were skipped
// because their credentials or binary are missing.
type ExtractionError struct {
	Kind        ExtractionErrorKind
	Services    []string
	Unavailable []string
	Err         error
}

func (e *ExtractionError) Error() string {
	var msg string
	switch e.Kind {
	case MalformedContainer:
		msg = "failed to parse document"
	case NoTextFound:
		msg = "no text content found in document"
	case NoOCRServiceAvailable:
		msg = "no OCR service available (available services: none), configure a cloud OCR provider, install tesseract or upload a PDF"
	case AllProvidersFailed:
		msg = "all OCR providers failed to recognize the image"
	case UnsupportedMediaType:
		msg = "unsupported media type"
	default:
		msg = "text extraction failed"
	}

	if len(e.Services) > 0 {
		msg = fmt.Sprintf("%s (services: %s)", msg, strings.Join(e.Services, ", "))
	}
	if len(e.Unavailable) > 0 {
		msg = fmt.Sprintf("%s (unavailable: %s)", msg, strings.Join(e.Unavailable, ", "))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ConfigError reports missing or malformed credentials. No network call is
// attempted when one is returned.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// TransportError wraps a network, auth or timeout failure talking to an
// external service.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
