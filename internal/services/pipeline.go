package services

import (
	"context"
	"fmt"
	"log"
)

type Document struct {
	Filename  string
	Data      []byte
	MediaType MediaType
}

type DocumentAnalysis struct {
	Result *AnalysisResult
	// KeyClauses is only filled for contracts.
	KeyClauses []string
}

// DocumentAnalyzer runs extraction, prompt, completion, reconciliation and
// persistence strictly in that order for one document.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, kind SchemaKind, doc Document, params AnalysisParams) (*DocumentAnalysis, error)
}

type documentAnalyzer struct {
	extractor TextExtractor
	services  map[SchemaKind]AnalysisService
}

func NewDocumentAnalyzer(extractor TextExtractor, services ...AnalysisService) DocumentAnalyzer {
	byKind := make(map[SchemaKind]AnalysisService, len(services))
	for _, s := range services {
		byKind[s.Kind()] = s
	}
	return &documentAnalyzer{
		extractor: extractor,
		services:  byKind,
	}
}

// Analyze returns (nil, err) when no text could be extracted. Once the LLM
// stage is reached a result is always returned, possibly with an error.
func (a *documentAnalyzer) Analyze(ctx context.Context, kind SchemaKind, doc Document, params AnalysisParams) (*DocumentAnalysis, error) {
	service, ok := a.services[kind]
	if !ok {
		return nil, fmt.Errorf("no analysis service registered for %q", kind)
	}

	log.Printf("📄 Extracting text from %s (%s)\n", doc.Filename, doc.MediaType)
	text, err := a.extractor.Extract(ctx, doc.Data, doc.MediaType)
	if err != nil {
		return nil, err
	}

	if params.Filename == "" {
		params.Filename = doc.Filename
	}

	result, err := service.Analyze(ctx, text, params)
	analysis := &DocumentAnalysis{Result: result}
	if kind == ContractRisk {
		analysis.KeyClauses = ExtractKeyClauses(text)
	}

	return analysis, err
}
