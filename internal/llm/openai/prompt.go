package openai

import (
	"fmt"
	"strings"

	"policydesk-backend/internal/llm"
	"policydesk-backend/internal/shared/telemetry"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const (
	systemPromptStrict  = "You are an insurance policy analysis engine. Respond with JSON only. Output must match the schema exactly."
	systemPromptV2      = "You are an insurance policy analysis engine. Respond with JSON only. No markdown. Never omit keys. Output must match the schema exactly."
	systemPromptFixJSON = "You are a JSON repair tool. Return only valid JSON that matches the schema exactly."
)

// BuildPrompt creates the chat messages for a policy summarization request.
func BuildPrompt(input llm.SummarizeInput, model string) []Message {
	usedVersion, developer := resolvePromptTemplate(input.PromptVersion, input.FocusAreas, model)
	system := systemPromptStrict
	if usedVersion == "v2" {
		system = systemPromptV2
	}

	return []Message{
		{Role: "system", Content: system},
		{Role: "developer", Content: developer},
		{Role: "user", Content: buildUserPrompt(input)},
	}
}

func buildFixPrompt(input llm.SummarizeInput, model string, raw []byte) []Message {
	_, developer := resolvePromptTemplate(input.PromptVersion, input.FocusAreas, model)
	return []Message{
		{Role: "system", Content: systemPromptFixJSON},
		{Role: "developer", Content: developer},
		{Role: "user", Content: fixUserPrompt(raw)},
	}
}

func resolvePromptTemplate(promptVersion string, focusAreas []string, model string) (string, string) {
	version := strings.TrimSpace(promptVersion)
	template, ok := llm.PromptTemplate(version)
	usedVersion := version
	if !ok {
		telemetry.Warn("llm.prompt_version_unknown", map[string]any{
			"requested": version,
			"using":     llm.DefaultPromptVersion,
		})
		usedVersion = llm.DefaultPromptVersion
	}

	focusAreasProvided := "true"
	if len(focusAreas) == 0 {
		focusAreasProvided = "false"
	}

	replacer := strings.NewReplacer(
		"{{PROMPT_VERSION}}", usedVersion,
		"{{MODEL}}", model,
		"{{FOCUS_AREAS_PROVIDED}}", focusAreasProvided,
	)
	return usedVersion, replacer.Replace(template)
}

func buildUserPrompt(input llm.SummarizeInput) string {
	var b strings.Builder
	b.WriteString("Processing options:\n")
	fmt.Fprintf(&b, "- detail level: %s\n", valueOr(input.DetailLevel, "standard"))
	fmt.Fprintf(&b, "- output format: %s\n", valueOr(input.Format, "paragraph"))
	if len(input.FocusAreas) > 0 {
		fmt.Fprintf(&b, "- focus areas: %s\n", strings.Join(input.FocusAreas, ", "))
	}
	fmt.Fprintf(&b, "- include risk assessment: %t\n", input.IncludeRiskAssessment)
	fmt.Fprintf(&b, "- include recommendations: %t\n", input.IncludeRecommendations)
	b.WriteString("\nPolicy Document Text:\n")
	b.WriteString(input.PolicyText)
	return b.String()
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func fixUserPrompt(raw []byte) string {
	return fmt.Sprintf("Fix this JSON to match the schema exactly. Output JSON only:\n%s", string(raw))
}

func prependSystemMessage(messages []Message, content string) []Message {
	if strings.TrimSpace(content) == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: "system", Content: content})
	out = append(out, messages...)
	return out
}
