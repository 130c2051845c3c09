package services

import (
	"fmt"
	"strings"
)

type SchemaKind string

const (
	ResumeMatch  SchemaKind = "resume_match"
	ContractRisk SchemaKind = "contract_risk"
)

// Schema returns the response schema owned by the kind.
func (k SchemaKind) Schema() (*AnalysisSchema, error) {
	switch k {
	case ResumeMatch:
		return ResumeMatchSchema, nil
	case ContractRisk:
		return ContractRiskSchema, nil
	}
	return nil, fmt.Errorf("unknown analysis kind: %q", k)
}

type PromptParams struct {
	// JobDescription is required for ResumeMatch.
	JobDescription string
	// ContractType is one of the contract subtype keys; unknown values fall
	// back to a generic contract.
	ContractType string
	UserContext  string
	// Language of the generated content. Defaults to English.
	Language string
}

type Prompt struct {
	System string
	User   string
}

type contractSubtype struct {
	Name  string
	Focus string
}

var contractSubtypes = map[string]contractSubtype{
	"rental":      {"rental agreement", "rent payment, deposit refund, liability for breach, repairs and early termination"},
	"service":     {"service agreement", "scope of service, fee settlement, liability, breach handling and intellectual property"},
	"employment":  {"employment contract", "salary and benefits, working hours, social insurance, non-compete and termination conditions"},
	"purchase":    {"purchase agreement", "product quality, payment terms, return and exchange policy, liability for breach and after-sales service"},
	"cooperation": {"cooperation agreement", "allocation of rights and obligations, profit sharing, liability, term and termination conditions"},
	"other":       {"contract", "rights and obligations of both parties, liability for breach, dispute resolution and termination"},
}

var genericContract = contractSubtype{"contract", "the core clauses and their potential risks"}

// ContractTypes lists the accepted contract subtype keys.
func ContractTypes() []string {
	return []string{"rental", "service", "employment", "purchase", "cooperation", "other"}
}

func ContractTypeName(contractType string) string {
	return lookupContract(contractType).Name
}

func ContractFocus(contractType string) string {
	return lookupContract(contractType).Focus
}

func lookupContract(contractType string) contractSubtype {
	if st, ok := contractSubtypes[contractType]; ok {
		return st
	}
	return genericContract
}

// ExtractKeyClauses returns up to ten paragraphs longer than 50 characters.
func ExtractKeyClauses(text string) []string {
	clauses := make([]string, 0, 10)
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimSpace(para)
		if len([]rune(para)) > 50 {
			clauses = append(clauses, para)
			if len(clauses) == 10 {
				break
			}
		}
	}
	return clauses
}

// PromptBuilder renders the system and user messages for an analysis. It is
// pure: no I/O, deterministic output for the same inputs.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

func (pb *PromptBuilder) Build(kind SchemaKind, text string, params PromptParams) (Prompt, error) {
	schema, err := kind.Schema()
	if err != nil {
		return Prompt{}, err
	}

	lang := params.Language
	if lang == "" {
		lang = "English"
	}

	switch kind {
	case ResumeMatch:
		return Prompt{
			System: resumeSystemMessage,
			User:   pb.buildResumeMatchPrompt(text, params.JobDescription, schema, lang),
		}, nil
	default:
		return Prompt{
			System: contractSystemMessage,
			User:   pb.buildContractRiskPrompt(text, params.ContractType, params.UserContext, schema, lang),
		}, nil
	}
}

const resumeSystemMessage = `You are an HR director with 15 years of recruiting experience and a recognized resume optimization expert. Analyze from both perspectives, keep your scoring in line with real industry standards, give professional resume optimization advice, and reply strictly in the requested JSON format.`

const contractSystemMessage = `You are an experienced legal advisor and contract expert who helps ordinary people understand complex legal documents.

1. Background:
   - 15 years of legal practice
   - Specialized in contract law and consumer protection
   - Explains legal clauses in plain, everyday language
   - Stands on the side of the ordinary person and protects their rights

2. Principles:
   - Identify every clause that is unfavorable to the ordinary person
   - Focus on hidden risks and traps
   - Explain legal jargon in plain words
   - Give practical responses and negotiation strategies

3. Risk levels:
   - high: may cause major financial loss or legal consequences
   - medium: affects the user's rights but with lighter consequences
   - low: worth noting but with little impact

4. Output:
   - Plain language, few legal terms
   - Clear priorities and structure
   - Concrete, actionable advice
   - Objective, but leaning towards protecting the ordinary person`

func (pb *PromptBuilder) buildResumeMatchPrompt(resumeText, jobDescription string, schema *AnalysisSchema, lang string) string {
	return fmt.Sprintf(`Analyze how well the following resume matches the target position, as a senior HR director and resume optimization expert would. Evaluate:

1. Skill match: tech stack, tools and professional abilities against the job requirements
2. Experience relevance: how closely work history and projects relate to the position
3. Career trajectory: whether the candidate's growth path is coherent
4. Extra strengths: valuable skills or experience beyond the job description
5. Risks: gaps or factors that could prevent an offer
6. Optimization opportunities: wording and presentation that could be improved
7. ATS friendliness: how well the resume passes automated screening

CANDIDATE RESUME:
%s

TARGET JOB DESCRIPTION:
%s

Return a single JSON object with exactly this structure and no other text:
%s

Requirements:
1. Scoring: below 60 is a mismatch, 60-75 a basic match, 75-85 a good match, 85 and above an excellent match. match_score must be an integer.
2. Keywords: focus on the core skills, required experience and tools in the job description.
3. Suggestions must be specific and actionable.
4. Rewrite projects with the STAR method (situation, task, action, result), emphasizing results and data.
5. Write all content in %s.`,
		resumeText, jobDescription, schema.Skeleton(), lang)
}

func (pb *PromptBuilder) buildContractRiskPrompt(contractText, contractType, userContext string, schema *AnalysisSchema, lang string) string {
	if strings.TrimSpace(userContext) == "" {
		userContext = "None"
	}

	return fmt.Sprintf(`Analyze the following %s, focusing on %s.

CONTRACT:
%s

ADDITIONAL CONTEXT FROM THE USER:
%s

Tasks:
1. Identify the contract type and basic information
2. Find every potential risk, especially clauses unfavorable to the ordinary person
3. Explain complex clauses in plain language
4. Give concrete advice and response strategies

Return a single JSON object with exactly this structure and no other text:
%s

Important:
- Read every clause carefully and do not miss important risks
- Use language an ordinary person understands
- Pay special attention to one-sided clauses that could hurt the user
- level and priority must be one of: high, medium, low
- Write all content in %s`,
		ContractTypeName(contractType), ContractFocus(contractType), contractText, userContext, schema.Skeleton(), lang)
}
