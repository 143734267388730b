package ocr

import (
	"regexp"
	"strings"
)

var (
	reRegisterNo = regexp.MustCompile(`\b[A-Z0-9]{6,10}\b`)
	reSeat       = regexp.MustCompile(`\b[A-Z]{1,2}-?\d{1,3}\b`)
	reHallWord   = regexp.MustCompile(`(?i)\b(hall|room|block|lab|annex)\b`)
)

// heuristicConfidence scores decoded text by how much it looks like an allocation sheet.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2) // base
	regs := reRegisterNo.FindAllString(txt, -1)
	if len(regs) > 0 {
		score += 0.3
	}
	if len(regs) > 1 {
		score += 0.1
	}
	if reSeat.MatchString(txt) {
		score += 0.15
	}
	if reHallWord.MatchString(txt) {
		score += 0.15
	}
	if len(strings.TrimSpace(txt)) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
