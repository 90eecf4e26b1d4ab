package architect

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"studioshot/internal/providers/vision"
)

func buildComposePrompt(analysis *vision.Analysis, userPrompt string, quantity, index int) string {
	sb := &strings.Builder{}
	sb.WriteString("You are a commercial product photography art director. ")
	sb.WriteString("Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"image_prompt":string,"render_prefs":{"camera":string,"lighting":string,"aspect_ratio":string,"output_style":string}}`)
	fmt.Fprintf(sb, ". This is image %d of %d in one batch; make the scene clearly different from the other images in the batch.", index+1, quantity)
	if analysis != nil {
		fmt.Fprintf(sb, " Product analysis: product=%q, category=%q, colors=%q, materials=%q, distinctive_features=%q, suggested_settings=%q.",
			analysis.Product, analysis.Category,
			strings.Join(analysis.Colors, ", "),
			strings.Join(analysis.Materials, ", "),
			analysis.Distinctive,
			strings.Join(analysis.SuggestedSettings, "; "))
	}
	if strings.TrimSpace(userPrompt) != "" {
		fmt.Fprintf(sb, " Customer direction: %q.", strings.TrimSpace(userPrompt))
	}
	sb.WriteString(" The product's shape, label and branding must be preserved exactly; only the scene, surface, backdrop and lighting change.")
	return sb.String()
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
