package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPages returns the plain text of each page of a PDF.
// Pages with no extractable text are skipped.
func ExtractPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", i, path, err)
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}

var clientIDPattern = regexp.MustCompile(`\b(\d{6})\b`)

// ExtractClientID finds the client account number in report text.
// It first looks for the line following "Data de Referência" and takes its
// digits; failing that, it falls back to the first 6-digit run anywhere.
func ExtractClientID(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "Data de Referência") {
			continue
		}
		for _, next := range lines[i+1:] {
			next = strings.TrimSpace(next)
			if next == "" {
				continue
			}
			if digits := onlyDigits(next); digits != "" {
				return digits, true
			}
			break
		}
		break
	}

	if m := clientIDPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
