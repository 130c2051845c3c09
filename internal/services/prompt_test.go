package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptBuilder_ResumeMatch(t *testing.T) {
	pb := NewPromptBuilder()

	prompt, err := pb.Build(ResumeMatch, "Jane Doe, 5 years of Go", PromptParams{
		JobDescription: "Senior Go engineer with Kubernetes",
	})
	require.NoError(t, err)

	assert.Equal(t, resumeSystemMessage, prompt.System)
	assert.Contains(t, prompt.User, "Jane Doe, 5 years of Go")
	assert.Contains(t, prompt.User, "Senior Go engineer with Kubernetes")
	assert.Contains(t, prompt.User, ResumeMatchSchema.Skeleton())
	assert.Contains(t, prompt.User, "Write all content in English.")

	again, err := pb.Build(ResumeMatch, "Jane Doe, 5 years of Go", PromptParams{
		JobDescription: "Senior Go engineer with Kubernetes",
	})
	require.NoError(t, err)
	assert.Equal(t, prompt, again)
}

func TestPromptBuilder_ContractRisk(t *testing.T) {
	pb := NewPromptBuilder()

	prompt, err := pb.Build(ContractRisk, "The tenant pays a deposit of two months.", PromptParams{
		ContractType: "rental",
		UserContext:  "I am the tenant",
		Language:     "Chinese",
	})
	require.NoError(t, err)

	assert.Equal(t, contractSystemMessage, prompt.System)
	assert.True(t, strings.HasPrefix(prompt.User, "Analyze the following rental agreement, focusing on rent payment"))
	assert.Contains(t, prompt.User, "I am the tenant")
	assert.Contains(t, prompt.User, ContractRiskSchema.Skeleton())
	assert.Contains(t, prompt.User, "Write all content in Chinese")
}

func TestPromptBuilder_UnknownContractTypeFallsBack(t *testing.T) {
	prompt, err := NewPromptBuilder().Build(ContractRisk, "text", PromptParams{ContractType: "franchise"})
	require.NoError(t, err)

	assert.Contains(t, prompt.User, "Analyze the following contract, focusing on the core clauses and their potential risks.")
	assert.Contains(t, prompt.User, "ADDITIONAL CONTEXT FROM THE USER:\nNone")
}

func TestPromptBuilder_UnknownKind(t *testing.T) {
	_, err := NewPromptBuilder().Build(SchemaKind("cover_letter"), "text", PromptParams{})
	assert.Error(t, err)
}

func TestContractTypes(t *testing.T) {
	for _, ct := range ContractTypes() {
		assert.NotEqual(t, genericContract, lookupContract(ct), ct)
	}
	assert.Equal(t, "employment contract", ContractTypeName("employment"))
	assert.Equal(t, genericContract.Focus, ContractFocus(""))
}

func TestExtractKeyClauses(t *testing.T) {
	long := strings.Repeat("x", 51)
	short := strings.Repeat("y", 50)
	chinese := strings.Repeat("甲", 51)

	text := strings.Join([]string{short, "  " + long + "  ", "", chinese}, "\n")
	assert.Equal(t, []string{long, chinese}, ExtractKeyClauses(text))

	many := strings.TrimSuffix(strings.Repeat(long+"\n", 15), "\n")
	assert.Len(t, ExtractKeyClauses(many), 10)

	assert.Empty(t, ExtractKeyClauses(strings.Repeat("字", 30)))
}
