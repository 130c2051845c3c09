package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type ReconcileOutcome string

const (
	// OutcomeValid: the response matched the schema as-is.
	OutcomeValid ReconcileOutcome = "valid"
	// OutcomeRepaired: the response parsed but needed defaults or coercion.
	OutcomeRepaired ReconcileOutcome = "repaired"
	// OutcomeDegraded: the response could not be parsed.
	OutcomeDegraded ReconcileOutcome = "degraded"
	// OutcomeTransportFailure: the LLM was never reached.
	OutcomeTransportFailure ReconcileOutcome = "transport_failure"
)

const parseFailureMessage = "Failed to parse AI response"

// AnalysisResult always carries every field of its schema. Error and
// RawResponse are only set on the degraded and transport-failure paths.
type AnalysisResult struct {
	Schema      string
	Outcome     ReconcileOutcome
	Fields      map[string]any
	Error       string
	RawResponse string

	// RecordID is the persisted AnalysisRecord, if any. Not part of the JSON.
	RecordID *uint
}

func (r *AnalysisResult) Degraded() bool {
	return r.Outcome == OutcomeDegraded || r.Outcome == OutcomeTransportFailure
}

// IntField returns a top-level integer field, or 0.
func (r *AnalysisResult) IntField(name string) int {
	n, _ := r.Fields[name].(int)
	return n
}

// StringList returns a top-level string list field, or nil.
func (r *AnalysisResult) StringList(name string) []string {
	l, _ := r.Fields[name].([]string)
	return l
}

// MarshalJSON flattens Fields with the error and raw_response side channel.
func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.RawResponse != "" {
		out["raw_response"] = r.RawResponse
	}
	return json.Marshal(out)
}

// Reconciler coerces raw LLM completions into schema-complete results. It
// never returns an error and never panics.
type Reconciler struct {
	metrics *Metrics

	mu         sync.Mutex
	validators map[string]*jsonschema.Schema
}

func NewReconciler(metrics *Metrics) *Reconciler {
	return &Reconciler{
		metrics:    metrics,
		validators: make(map[string]*jsonschema.Schema),
	}
}

func (r *Reconciler) Reconcile(raw string, schema *AnalysisSchema) (result *AnalysisResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ Reconciler panic for %s: %v\n", schema.Name, rec)
			result = r.degraded(raw, schema)
		}
	}()

	located := LocateJSON(raw)
	parsed, err := decodeJSONObject(located)
	if err != nil {
		log.Printf("⚠️  Failed to parse %s response: %v\n", schema.Name, err)
		return r.degraded(raw, schema)
	}

	outcome := OutcomeRepaired
	if r.conforms(schema, located) {
		outcome = OutcomeValid
	}

	result = &AnalysisResult{
		Schema:  schema.Name,
		Outcome: outcome,
		Fields:  coerceObject(parsed, schema.Fields),
	}

	if outcome == OutcomeRepaired {
		log.Printf("🔧 %s response repaired with schema defaults\n", schema.Name)
	}
	r.metrics.ObserveReconcile(schema.Name, outcome)

	return result
}

// TransportFailure builds the result returned when the LLM call itself failed.
func (r *Reconciler) TransportFailure(schema *AnalysisSchema, err error) *AnalysisResult {
	r.metrics.ObserveReconcile(schema.Name, OutcomeTransportFailure)
	return &AnalysisResult{
		Schema:  schema.Name,
		Outcome: OutcomeTransportFailure,
		Fields:  schema.TransportFailurePayload(err.Error()),
		Error:   err.Error(),
	}
}

func (r *Reconciler) degraded(raw string, schema *AnalysisSchema) *AnalysisResult {
	r.metrics.ObserveReconcile(schema.Name, OutcomeDegraded)
	return &AnalysisResult{
		Schema:      schema.Name,
		Outcome:     OutcomeDegraded,
		Fields:      schema.DegradedPayload(),
		Error:       parseFailureMessage,
		RawResponse: raw,
	}
}

func (r *Reconciler) conforms(schema *AnalysisSchema, located string) bool {
	validator, err := r.validator(schema)
	if err != nil {
		log.Printf("⚠️  Schema %s could not be compiled: %v\n", schema.Name, err)
		return false
	}

	var v any
	if err := json.Unmarshal([]byte(located), &v); err != nil {
		return false
	}
	return validator.Validate(v) == nil
}

func (r *Reconciler) validator(schema *AnalysisSchema) (*jsonschema.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := schema.Name + "/" + schema.Version
	if v, ok := r.validators[key]; ok {
		return v, nil
	}

	b, err := json.Marshal(schema.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	url := fmt.Sprintf("%s_%s.json", schema.Name, schema.Version)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	r.validators[key] = compiled
	return compiled, nil
}

// LocateJSON finds the JSON payload in a completion: the body of a ```json
// fence, else the span from the first '{' to the last '}', else the input.
func LocateJSON(raw string) string {
	lower := strings.ToLower(raw)
	if start := strings.Index(lower, "```json"); start != -1 {
		body := raw[start+len("```json"):]
		if end := strings.Index(body, "```"); end != -1 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first != -1 && last > first {
		return raw[first : last+1]
	}

	return raw
}

func decodeJSONObject(s string) (map[string]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty payload")
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return obj, nil
}

func coerceObject(src map[string]any, fields []Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, present := src[f.Name]
		if !present || v == nil {
			out[f.Name] = fieldDefault(f)
			continue
		}
		out[f.Name] = coerceField(v, f)
	}
	return out
}

func coerceField(v any, f Field) any {
	switch f.Type {
	case FieldInt:
		return clampInt(coerceInt(v), f)
	case FieldStringList:
		return coerceStringList(v)
	case FieldObject:
		m, ok := v.(map[string]any)
		if !ok {
			return fieldDefault(f)
		}
		return coerceObject(m, f.Fields)
	case FieldObjectList:
		items, ok := v.([]any)
		if !ok {
			return []map[string]any{}
		}
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, coerceObject(m, f.Fields))
			}
		}
		return out
	default:
		s, ok := scalarString(v)
		if !ok {
			return fieldDefault(f)
		}
		return normalizeString(s, f)
	}
}

// coerceInt truncates fractional values; anything non-numeric is 0.
func coerceInt(v any) int {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return saturate(float64(i))
		}
		if fl, err := n.Float64(); err == nil {
			return saturate(fl)
		}
	case float64:
		return saturate(n)
	case int:
		return n
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if fl, err := strconv.ParseFloat(s, 64); err == nil {
			return saturate(fl)
		}
	}
	return 0
}

func saturate(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

func clampInt(n int, f Field) int {
	if f.Min != nil && n < *f.Min {
		return *f.Min
	}
	if f.Max != nil && n > *f.Max {
		return *f.Max
	}
	return n
}

func coerceStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := scalarString(item); ok {
			out = append(out, s)
		}
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}

func normalizeString(s string, f Field) string {
	if len(f.Synonyms) > 0 {
		if mapped, ok := f.Synonyms[strings.ToLower(strings.TrimSpace(s))]; ok {
			s = mapped
		}
	}
	if len(f.Enum) == 0 {
		return s
	}
	for _, allowed := range f.Enum {
		if s == allowed {
			return s
		}
	}
	return fieldDefault(f).(string)
}
