package ocr

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ImageConfidenceThreshold is the blended confidence below which results are flagged.
const ImageConfidenceThreshold = 0.6

// engineWeight is the share of the blended score taken by tesseract's own word confidence.
const engineWeight = 0.7

func (e *Extractor) extractImage(ctx context.Context, path string, report func(float64)) (ExtractionResult, error) {
	res := ExtractionResult{Method: "image-ocr", Language: e.cfg.TesseractLang}

	out, stderr, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		res.Warnings = append(res.Warnings, strings.TrimSpace(string(stderr)))
		return res, fmt.Errorf("tesseract: %w", err)
	}
	res.RawText = string(out)
	res.Text = Normalize(reBoxNoise.ReplaceAllString(res.RawText, ""))
	report(progressRecognized)

	var engine float32
	if e.cfg.EnableTSVConfidence {
		tsv, stderr, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path, "tsv")...)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("tsv confidence unavailable: %v", err))
			if s := strings.TrimSpace(string(stderr)); s != "" {
				res.Warnings = append(res.Warnings, s)
			}
		} else {
			engine = meanTSVConfidence(string(tsv))
		}
	}
	res.Confidence = blendConfidence(engine, heuristicConfidence(res.Text))
	report(progressScored)
	return res, nil
}

// blendConfidence prefers the engine's score when it produced one.
func blendConfidence(engine, heuristic float32) float32 {
	c := heuristic
	if engine > 0 {
		c = engineWeight*engine + (1-engineWeight)*heuristic
	}
	return min(c, 1)
}

// tesseractArgs builds `tesseract <file> stdout -l <lang> [flags] [configs...]`.
func (e *Extractor) tesseractArgs(path string, configs ...string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return append(args, configs...)
}

// meanTSVConfidence averages the word confidences of a tesseract TSV dump as
// a fraction. The conf column is located by its header; -1 marks non-word rows.
func meanTSVConfidence(tsv string) float32 {
	lines := strings.Split(strings.TrimRight(tsv, "\n"), "\n")
	if len(lines) < 2 {
		return 0
	}
	col := slices.Index(strings.Split(lines[0], "\t"), "conf")
	if col < 0 {
		return 0
	}
	var sum float64
	var words int
	for _, ln := range lines[1:] {
		cols := strings.Split(ln, "\t")
		if len(cols) <= col {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[col]), 64)
		if err != nil || v < 0 {
			continue
		}
		sum += v
		words++
	}
	if words == 0 {
		return 0
	}
	return float32(sum / float64(words) / 100)
}
