package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"policydesk-backend/internal/extract"
	"policydesk-backend/internal/llm"
	openai "policydesk-backend/internal/llm/openai"
	"policydesk-backend/internal/shared/config"
)

// prompttest runs the extraction prompt against a local policy file and
// prints the validated JSON envelope. Useful when iterating on prompt
// versions without going through the API.
func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "Path to policy file (pdf or docx)")
	detailLevel := flag.String("detail", "standard", "Detail level: brief, standard, comprehensive")
	focusAreas := flag.String("focus", "", "Comma-separated focus areas (optional)")
	format := flag.String("format", "paragraph", "Summary format: paragraph or bullets")
	includeRisk := flag.Bool("risk", true, "Include risk assessment")
	includeRecs := flag.Bool("recommendations", true, "Include recommendations")
	promptVersion := flag.String("prompt-version", "v1", "Prompt version")
	outPath := flag.String("out", "", "Path to write raw JSON output (optional)")
	provider := flag.String("provider", cfg.ExtractionProvider, "Extraction provider")
	model := flag.String("model", cfg.ExtractionModel, "Extraction model")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("policy file path is required")
	}

	mimeType, err := mimeFromExt(*filePath)
	if err != nil {
		exitErr(err.Error())
	}

	fileBytes, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read policy file: %v", err))
	}
	fileName := filepath.Base(*filePath)

	policyText, err := extract.ExtractTextFromBytes(context.Background(), fileBytes, mimeType, fileName)
	if err != nil {
		exitErr(fmt.Sprintf("extract policy text: %v", err))
	}

	client, err := buildClient(*provider, *model)
	if err != nil {
		exitErr(err.Error())
	}

	input := llm.SummarizeInput{
		PolicyText:             policyText,
		DetailLevel:            *detailLevel,
		FocusAreas:             splitFocusAreas(*focusAreas),
		Format:                 *format,
		IncludeRiskAssessment:  *includeRisk,
		IncludeRecommendations: *includeRecs,
		PromptVersion:          *promptVersion,
	}

	raw, err := client.SummarizePolicy(context.Background(), input)
	if err != nil {
		exitErr(fmt.Sprintf("llm summarize: %v", err))
	}
	if err := llm.ValidateJSONAgainstSchema(llm.BuildPolicyJSONSchema(), raw); err != nil {
		exitErr(fmt.Sprintf("invalid envelope: %v", err))
	}

	pretty, err := prettyJSON(raw)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if len(pretty) == 0 || pretty[len(pretty)-1] != '\n' {
		_, _ = os.Stdout.Write([]byte("\n"))
	}
}

func buildClient(provider, model string) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai":
		return openai.NewClient(os.Getenv("OPENAI_API_KEY"), model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func splitFocusAreas(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	areas := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			areas = append(areas, trimmed)
		}
	}
	return areas
}

func mimeFromExt(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf", nil
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil
	default:
		return "", fmt.Errorf("unsupported policy file type: %s", filepath.Ext(path))
	}
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
