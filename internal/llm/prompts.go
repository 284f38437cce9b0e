package llm

import _ "embed"

// DefaultPromptVersion is used when a request does not pin a prompt version.
const DefaultPromptVersion = "v1"

// Extraction prompt templates. Every version stays embedded so a build can
// replay whichever one a request pins.
var (
	//go:embed prompts/v1.txt
	promptV1 string
	//go:embed prompts/v2.txt
	promptV2 string
)

var promptTemplates = map[string]string{
	"v1": promptV1,
	"v2": promptV2,
}

// PromptTemplate returns the template text for version and whether the version
// was recognized. Unknown versions fall back to DefaultPromptVersion.
func PromptTemplate(version string) (string, bool) {
	if template, ok := promptTemplates[version]; ok {
		return template, true
	}
	return promptTemplates[DefaultPromptVersion], false
}
