package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"alfredoptarigan/resume-polisher/internal/config"
	"alfredoptarigan/resume-polisher/internal/services"
)

// Runs a single local file through extraction and analysis and prints the
// result as JSON. Nothing is persisted.
func main() {
	var (
		file         = flag.String("file", "", "resume or contract file to analyze (required)")
		kind         = flag.String("kind", string(services.ResumeMatch), "resume_match or contract_risk")
		jdFile       = flag.String("jd", "", "file containing the job description (resume_match)")
		contractType = flag.String("contract-type", "other", "contract subtype (contract_risk)")
		userContext  = flag.String("context", "", "extra context from the user (contract_risk)")
		textOnly     = flag.Bool("text-only", false, "print the extracted text and exit")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		os.Exit(1)
	}

	cfg := config.Load()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", *file, err)
	}

	mediaType, ok := services.MediaTypeFromFilename(*file)
	if !ok {
		log.Fatalf("❌ Unsupported file type: %s", filepath.Ext(*file))
	}

	metrics := services.NewMetrics()
	breakers := services.NewBreakerSet(cfg.Breaker)
	ocrChain := services.NewOCRChain(services.NewDefaultOCRProviders(cfg.OCR), cfg.OCR.Timeout, breakers, metrics)
	extractor := services.NewTextExtractor(services.NewPDFParserService(), ocrChain)

	ctx := context.Background()

	if *textOnly {
		text, err := extractor.Extract(ctx, data, mediaType)
		if err != nil {
			log.Fatalf("❌ Extraction failed: %v", err)
		}
		fmt.Println(text)
		return
	}

	params := services.AnalysisParams{
		PromptParams: services.PromptParams{
			ContractType: *contractType,
			UserContext:  *userContext,
		},
		Filename: filepath.Base(*file),
	}

	if services.SchemaKind(*kind) == services.ResumeMatch {
		if *jdFile == "" {
			fmt.Fprintln(os.Stderr, "Error: --jd is required for resume_match")
			os.Exit(1)
		}
		jd, err := os.ReadFile(*jdFile)
		if err != nil {
			log.Fatalf("❌ Failed to read job description: %v", err)
		}
		params.JobDescription = strings.TrimSpace(string(jd))
	}

	transport := services.NewLLMTransport(cfg.LLM)
	reconciler := services.NewReconciler(metrics)
	analysisCfg := services.AnalysisConfig{
		DefaultAPIKey: cfg.LLMCredential(),
		Policy:        services.CredentialPolicyFor(cfg.LLM.Provider),
		Timeout:       cfg.LLM.Timeout,
		Language:      cfg.LLM.OutputLanguage,
	}

	resumeCfg := analysisCfg
	resumeCfg.Model = cfg.LLM.ResumeModel
	contractCfg := analysisCfg
	contractCfg.Model = cfg.LLM.ContractModel

	analyzer := services.NewDocumentAnalyzer(
		extractor,
		services.NewResumeMatchService(transport, reconciler, nil, breakers, metrics, resumeCfg),
		services.NewContractRiskService(transport, reconciler, breakers, metrics, contractCfg),
	)

	log.Printf("🚀 Analyzing %s as %s\n", *file, *kind)

	analysis, analyzeErr := analyzer.Analyze(ctx, services.SchemaKind(*kind), services.Document{
		Filename:  params.Filename,
		Data:      data,
		MediaType: mediaType,
	}, params)
	if analyzeErr != nil {
		log.Printf("⚠️  Analysis finished with error: %v\n", analyzeErr)
	}
	if analysis == nil {
		os.Exit(1)
	}

	out := map[string]any{"analysis": analysis.Result}
	if analysis.KeyClauses != nil {
		out["key_clauses"] = analysis.KeyClauses
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(out); err != nil {
		log.Fatalf("❌ Failed to encode result: %v", err)
	}

	if analyzeErr != nil {
		os.Exit(1)
	}
}
