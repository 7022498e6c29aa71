package llm

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed prompts/extract_v1.txt
var extractPromptTemplate string

//go:embed prompts/tailor_v1.txt
var tailorPromptTemplate string

// BuildExtractionPrompt renders the structured-extraction prompt for raw
// resume text.
func BuildExtractionPrompt(resumeText string) string {
	return strings.ReplaceAll(extractPromptTemplate, "{{RESUME_TEXT}}", resumeText)
}

// BuildTailoringPrompt renders the tailoring prompt for one extracted resume
// and one job description. Multi-line description text is flattened so the
// prompt keeps a stable shape.
func BuildTailoringPrompt(resumeData map[string]any, jd map[string]any) (string, error) {
	resumeJSON, err := json.MarshalIndent(resumeData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal resume data: %w", err)
	}

	jdCopy := make(map[string]any, len(jd))
	for k, v := range jd {
		jdCopy[k] = v
	}
	if desc, ok := jdCopy["description"].(string); ok {
		jdCopy["description"] = strings.Join(strings.Fields(desc), " ")
	}
	jdJSON, err := json.MarshalIndent(jdCopy, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job description: %w", err)
	}

	prompt := strings.ReplaceAll(tailorPromptTemplate, "{{RESUME_JSON}}", string(resumeJSON))
	prompt = strings.ReplaceAll(prompt, "{{JOB_DESCRIPTION_JSON}}", string(jdJSON))
	return prompt, nil
}
