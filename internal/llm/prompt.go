package llm

import (
	"strings"
	"unicode/utf8"
)

const maxPromptText = 6000

// BuildSystemPrompt states the output contract and the defaults the model should apply.
func BuildSystemPrompt(req ExtractRequest) string {
	parts := []string{
		"You read OCR text of exam hall allocation sheets. Return ONLY JSON that matches the provided JSON Schema.",
		`The top-level object has one key, "allocations", holding one object per student.`,
		"A register number is 6 to 10 uppercase letters or digits; every row MUST have one.",
		"Copy names, hall names and seat numbers as printed. Do not invent students.",
		"Use ISO-8601 dates (YYYY-MM-DD) and 12-hour times like 09:00 AM.",
		"Never output null. If a field is not present, omit it.",
	}
	if d := strings.TrimSpace(req.Today); d != "" {
		parts = append(parts, "If no exam date is visible, use "+d+".")
	}
	if t := strings.TrimSpace(req.DefaultTime); t != "" {
		parts = append(parts, "If no exam time is visible, use "+t+".")
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the filename hint and the (truncated) OCR text.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if f := strings.TrimSpace(req.FilenameHint); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n\n")
	}
	b.WriteString("OCR text:\n")
	b.WriteString(truncateText(req.OCRText, maxPromptText))
	return b.String()
}

// truncateText cuts s to at most max bytes without splitting a rune.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
