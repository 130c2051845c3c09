package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"alfredoptarigan/resume-polisher/internal/config"
)

const (
	ProviderAliyun    = "aliyun"
	ProviderBaidu     = "baidu"
	ProviderTencent   = "tencent"
	ProviderTesseract = "tesseract"
)

// OCRProvider recognizes text in a single image. Available reports whether
// the provider's credentials or local binary are present; it must not make
// network calls.
type OCRProvider interface {
	Name() string
	Available() bool
	Recognize(ctx context.Context, image []byte) (string, error)
}

type OCRChain interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
	ListAvailableServices() []string
	IsAnyAvailable() bool
	IsCloudAvailable() bool
}

type ocrChain struct {
	providers []OCRProvider
	timeout   time.Duration
	breakers  *BreakerSet
	metrics   *Metrics
}

// NewOCRChain tries providers in the given order. timeout bounds each
// provider call; zero disables it.
func NewOCRChain(providers []OCRProvider, timeout time.Duration, breakers *BreakerSet, metrics *Metrics) OCRChain {
	return &ocrChain{
		providers: providers,
		timeout:   timeout,
		breakers:  breakers,
		metrics:   metrics,
	}
}

// NewDefaultOCRProviders returns the cloud vendors followed by the local engine.
func NewDefaultOCRProviders(cfg config.OCRConfig) []OCRProvider {
	return []OCRProvider{
		NewAliyunOCR(cfg.AliyunAccessKeyID, cfg.AliyunAccessKeySecret, cfg.AliyunEndpoint),
		NewBaiduOCR(cfg.BaiduAPIKey, cfg.BaiduSecretKey, cfg.BaiduBaseURL, nil),
		NewTencentOCR(cfg.TencentSecretID, cfg.TencentSecretKey, cfg.TencentRegion),
		NewTesseractOCR(cfg.TesseractPath, cfg.TesseractLang, nil),
	}
}

func (c *ocrChain) ExtractText(ctx context.Context, image []byte) (string, error) {
	eligible := make([]OCRProvider, 0, len(c.providers))
	var unavailable []string
	for _, p := range c.providers {
		if p.Available() {
			eligible = append(eligible, p)
		} else {
			unavailable = append(unavailable, p.Name())
		}
	}

	if len(eligible) == 0 {
		log.Printf("❌ No OCR service available (unavailable: %v)\n", unavailable)
		return "", &ExtractionError{Kind: NoOCRServiceAvailable, Services: []string{}, Unavailable: unavailable}
	}

	var (
		attempted []string
		errs      []error
	)
	for _, p := range eligible {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("ocr cancelled: %w", err)
		}

		name := p.Name()
		attempted = append(attempted, name)
		log.Printf("🔍 Trying OCR provider %s\n", name)

		text, err := c.recognize(ctx, p, image)
		if err != nil {
			log.Printf("⚠️  OCR provider %s failed: %v\n", name, err)
			c.metrics.ObserveOCR(name, "error")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			log.Printf("⚠️  OCR provider %s returned no text\n", name)
			c.metrics.ObserveOCR(name, "empty")
			continue
		}

		c.metrics.ObserveOCR(name, "success")
		log.Printf("✅ OCR provider %s recognized %d characters\n", name, len(text))
		return text, nil
	}

	return "", &ExtractionError{Kind: AllProvidersFailed, Services: attempted, Err: errors.Join(errs...)}
}

func (c *ocrChain) recognize(ctx context.Context, p OCRProvider, image []byte) (string, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	return c.breakers.Execute("ocr."+p.Name(), func() (string, error) {
		return p.Recognize(callCtx, image)
	})
}

func (c *ocrChain) ListAvailableServices() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		if p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}

func (c *ocrChain) IsAnyAvailable() bool {
	for _, p := range c.providers {
		if p.Available() {
			return true
		}
	}
	return false
}

func (c *ocrChain) IsCloudAvailable() bool {
	for _, p := range c.providers {
		if p.Name() != ProviderTesseract && p.Available() {
			return true
		}
	}
	return false
}

// runWithContext runs a blocking SDK call that has no context support and
// returns early when ctx is done.
func runWithContext(ctx context.Context, fn func() (string, error)) (string, error) {
	type result struct {
		text string
		err  error
	}

	done := make(chan result, 1)
	go func() {
		text, err := fn()
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}
