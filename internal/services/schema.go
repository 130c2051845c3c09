package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldStringList
	FieldObject
	FieldObjectList
)

// Field describes one expected key of an LLM response. Default is used for
// FieldString and FieldInt; list fields default to an empty list and object
// fields default to the defaults of their sub-fields.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Default     any

	// FieldInt bounds, applied after coercion.
	Min *int
	Max *int

	// FieldString normalization. A value found in Synonyms (case-insensitive)
	// is replaced by its mapping; when Enum is set, any value still outside it
	// becomes Default.
	Enum     []string
	Synonyms map[string]string

	// Sub-fields of FieldObject and FieldObjectList.
	Fields []Field
}

// AnalysisSchema is a statically declared response shape interpreted by the
// Reconciler.
type AnalysisSchema struct {
	Name    string
	Version string
	Fields  []Field

	// degraded builds the payload returned when the response cannot be parsed.
	degraded func(s *AnalysisSchema) map[string]any
	// transportFailure builds the payload returned when the LLM call failed.
	transportFailure func(s *AnalysisSchema, reason string) map[string]any
}

func intPtr(v int) *int {
	return &v
}

// Defaults returns a fresh, fully backfilled payload.
func (s *AnalysisSchema) Defaults() map[string]any {
	return objectDefaults(s.Fields)
}

func objectDefaults(fields []Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Name] = fieldDefault(f)
	}
	return out
}

func fieldDefault(f Field) any {
	switch f.Type {
	case FieldString:
		if s, ok := f.Default.(string); ok {
			return s
		}
		return ""
	case FieldInt:
		if n, ok := f.Default.(int); ok {
			return n
		}
		return 0
	case FieldStringList:
		return []string{}
	case FieldObject:
		return objectDefaults(f.Fields)
	case FieldObjectList:
		return []map[string]any{}
	}
	return nil
}

// DegradedPayload is returned in place of a response that could not be parsed.
func (s *AnalysisSchema) DegradedPayload() map[string]any {
	if s.degraded == nil {
		return s.Defaults()
	}
	return s.degraded(s)
}

// TransportFailurePayload is returned when the LLM could not be reached.
func (s *AnalysisSchema) TransportFailurePayload(reason string) map[string]any {
	if s.transportFailure == nil {
		return s.Defaults()
	}
	return s.transportFailure(s, reason)
}

// JSONSchema renders the descriptor as a JSON Schema document.
func (s *AnalysisSchema) JSONSchema() map[string]any {
	return objectJSONSchema(s.Fields)
}

func objectJSONSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	var required []string
	for _, f := range fields {
		props[f.Name] = fieldJSONSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func fieldJSONSchema(f Field) map[string]any {
	switch f.Type {
	case FieldInt:
		doc := map[string]any{"type": "integer"}
		if f.Min != nil {
			doc["minimum"] = *f.Min
		}
		if f.Max != nil {
			doc["maximum"] = *f.Max
		}
		return doc
	case FieldStringList:
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	case FieldObject:
		return objectJSONSchema(f.Fields)
	case FieldObjectList:
		return map[string]any{"type": "array", "items": objectJSONSchema(f.Fields)}
	default:
		doc := map[string]any{"type": "string"}
		if len(f.Enum) > 0 {
			doc["enum"] = f.Enum
		}
		return doc
	}
}

// Skeleton renders an example object in field order whose leaves are the
// field descriptions. It is embedded in prompts as the required output shape.
func (s *AnalysisSchema) Skeleton() string {
	var b strings.Builder
	writeObjectSkeleton(&b, s.Fields, 0)
	return b.String()
}

func writeObjectSkeleton(b *strings.Builder, fields []Field, depth int) {
	indent := strings.Repeat("  ", depth+1)
	b.WriteString("{\n")
	for i, f := range fields {
		b.WriteString(indent)
		b.WriteString(quote(f.Name))
		b.WriteString(": ")
		writeFieldSkeleton(b, f, depth+1)
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("}")
}

func writeFieldSkeleton(b *strings.Builder, f Field, depth int) {
	switch f.Type {
	case FieldInt:
		desc := f.Description
		if f.Min != nil && f.Max != nil {
			desc = fmt.Sprintf("%s (integer %d-%d)", desc, *f.Min, *f.Max)
		}
		b.WriteString(quote(desc))
	case FieldStringList:
		b.WriteString("[")
		b.WriteString(quote(f.Description))
		b.WriteString("]")
	case FieldObject:
		writeObjectSkeleton(b, f.Fields, depth)
	case FieldObjectList:
		b.WriteString("[")
		writeObjectSkeleton(b, f.Fields, depth)
		b.WriteString("]")
	default:
		desc := f.Description
		if len(f.Enum) > 0 {
			desc = fmt.Sprintf("%s (one of: %s)", desc, strings.Join(f.Enum, ", "))
		}
		b.WriteString(quote(desc))
	}
}

func quote(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}

var levelSynonyms = map[string]string{
	"high":        "high",
	"high risk":   "high",
	"severe":      "high",
	"critical":    "high",
	"major":       "high",
	"高":           "high",
	"高风险":         "high",
	"medium":      "medium",
	"medium risk": "medium",
	"moderate":    "medium",
	"中":           "medium",
	"中等":          "medium",
	"中风险":         "medium",
	"low":         "low",
	"low risk":    "low",
	"minor":       "low",
	"低":           "low",
	"低风险":         "low",
}

var riskLevels = []string{"high", "medium", "low"}

const noSalaryInfo = "More information is needed to suggest a salary range"

// ResumeMatchSchema scores a resume against a job description.
var ResumeMatchSchema = &AnalysisSchema{
	Name:    "resume_match",
	Version: "v1",
	Fields: []Field{
		{
			Name:        "match_score",
			Type:        FieldInt,
			Description: "How well the resume matches the job description",
			Required:    true,
			Default:     0,
			Min:         intPtr(0),
			Max:         intPtr(100),
		},
		{
			Name:        "missing_keywords",
			Type:        FieldStringList,
			Description: "Important skill, experience or tool from the job description missing in the resume",
			Required:    true,
		},
		{
			Name:        "improvement_suggestions",
			Type:        FieldStringList,
			Description: "Specific, actionable suggestion to improve the resume",
			Required:    true,
		},
		{
			Name:        "rewritten_projects",
			Type:        FieldObjectList,
			Description: "Project or work experience rewritten for the job description",
			Required:    true,
			Fields: []Field{
				{Name: "original", Type: FieldString, Description: "Original project or work experience text", Required: true},
				{Name: "rewritten", Type: FieldString, Description: "Rewritten version highlighting results, data and impact", Required: true},
			},
		},
		{
			Name:        "hr_insights",
			Type:        FieldObject,
			Description: "Recruiter perspective on the candidate",
			Fields: []Field{
				{Name: "strengths", Type: FieldStringList, Description: "Core strength of the candidate"},
				{Name: "concerns", Type: FieldStringList, Description: "Potential concern for a recruiter"},
				{Name: "interview_focus", Type: FieldStringList, Description: "Area to probe in the interview"},
				{Name: "salary_range_suggestion", Type: FieldString, Description: "Suggested salary range based on experience and skills", Default: noSalaryInfo},
			},
		},
	},
	degraded: func(s *AnalysisSchema) map[string]any {
		out := s.Defaults()
		out["match_score"] = 50
		out["missing_keywords"] = []string{"parse error"}
		out["improvement_suggestions"] = []string{"The AI response could not be parsed, check the API configuration or try again"}
		return out
	},
	transportFailure: func(s *AnalysisSchema, reason string) map[string]any {
		out := s.Defaults()
		out["match_score"] = 0
		out["improvement_suggestions"] = []string{"API call failed: " + reason}
		return out
	},
}

// ContractRiskSchema flags risky clauses of a contract in plain language.
var ContractRiskSchema = &AnalysisSchema{
	Name:    "contract_risk",
	Version: "v1",
	Fields: []Field{
		{
			Name:        "contract_summary",
			Type:        FieldObject,
			Description: "Basic facts of the contract",
			Required:    true,
			Fields: []Field{
				{Name: "contract_type", Type: FieldString, Description: "Specific contract type identified", Required: true},
				{Name: "overall_risk", Type: FieldString, Description: "Overall risk level (high, medium or low)", Required: true, Synonyms: levelSynonyms},
				{Name: "key_points", Type: FieldString, Description: "Short summary of the core points", Required: true},
				{Name: "parties_involved", Type: FieldStringList, Description: "Party to the contract"},
			},
		},
		{
			Name:        "risks",
			Type:        FieldObjectList,
			Description: "Clause that is unfavorable or risky for the user",
			Required:    true,
			Fields: []Field{
				{Name: "title", Type: FieldString, Description: "Risk title", Required: true},
				{Name: "description", Type: FieldString, Description: "What the risk is and its possible consequences", Required: true},
				{Name: "level", Type: FieldString, Description: "Risk level", Required: true, Default: "medium", Enum: riskLevels, Synonyms: levelSynonyms},
				{Name: "clause_reference", Type: FieldString, Description: "Summary of the related clause"},
			},
		},
		{
			Name:        "plain_explanations",
			Type:        FieldObjectList,
			Description: "Complex clause explained in plain language",
			Required:    true,
			Fields: []Field{
				{Name: "clause_title", Type: FieldString, Description: "Clause title or topic", Required: true},
				{Name: "original_text", Type: FieldString, Description: "Key part of the original clause", Required: true},
				{Name: "plain_explanation", Type: FieldString, Description: "What the clause really means for the user", Required: true},
			},
		},
		{
			Name:        "suggestions",
			Type:        FieldObjectList,
			Description: "Concrete suggestion or negotiation strategy",
			Required:    true,
			Fields: []Field{
				{Name: "title", Type: FieldString, Description: "Suggestion title", Required: true},
				{Name: "content", Type: FieldString, Description: "Concrete suggestion and how to act on it", Required: true},
				{Name: "priority", Type: FieldString, Description: "Priority", Default: "medium", Enum: riskLevels, Synonyms: levelSynonyms},
			},
		},
	},
	degraded: func(s *AnalysisSchema) map[string]any {
		out := s.Defaults()
		out["contract_summary"] = map[string]any{
			"contract_type":    "unrecognized",
			"overall_risk":     "needs manual review",
			"key_points":       "The automatic analysis failed, please consult a professional lawyer",
			"parties_involved": []string{},
		}
		out["risks"] = []map[string]any{{
			"title":            "Analysis error",
			"description":      "The automatic analysis could not be completed. Have the contract reviewed by a professional lawyer.",
			"level":            "high",
			"clause_reference": "",
		}}
		out["suggestions"] = []map[string]any{{
			"title":    "Seek professional help",
			"content":  "Because the automatic analysis failed, consult a lawyer or legal advisor before signing.",
			"priority": "high",
		}}
		return out
	},
	transportFailure: func(s *AnalysisSchema, reason string) map[string]any {
		out := s.Defaults()
		summary := out["contract_summary"].(map[string]any)
		summary["contract_type"] = "unrecognized"
		summary["overall_risk"] = "needs manual review"
		summary["key_points"] = "API call failed: " + reason
		out["suggestions"] = []map[string]any{{
			"title":    "Try again later",
			"content":  "API call failed: " + reason,
			"priority": "high",
		}}
		return out
	},
}
