package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// waveSumTolerance absorbs decimal rounding in model output ("33,33%"
// three times sums to 99,99).
const waveSumTolerance = 0.011

var (
	waveMarkerRe   = regexp.MustCompile(`\[B\]\d+ª Onda:?\s*\[/B\]`)
	distributionRe = regexp.MustCompile(`(?i)distribuição final`)
	percentRe      = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*,\d{1,2})\s*%`)
)

// Wave is one rebalancing step extracted from the model's plan.
type Wave struct {
	Label    string
	Text     string
	Percents []float64
}

// Sum returns the total of the wave's final-distribution percentages.
func (w Wave) Sum() float64 {
	var s float64
	for _, p := range w.Percents {
		s += p
	}
	return s
}

// ParseWaves splits a rebalancing plan into waves and extracts the
// final-distribution percentages of each one.
func ParseWaves(plan string) []Wave {
	markers := waveMarkerRe.FindAllStringIndex(plan, -1)
	if len(markers) == 0 {
		return nil
	}

	waves := make([]Wave, 0, len(markers))
	for i, m := range markers {
		end := len(plan)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		body := plan[m[1]:end]
		waves = append(waves, Wave{
			Label:    strings.TrimSpace(plan[m[0]:m[1]]),
			Text:     body,
			Percents: distributionPercents(body),
		})
	}
	return waves
}

// distributionPercents extracts the percentages of the wave's
// "Distribuição final" block. The block runs until the Justificativa or
// Timing line, or the end of the wave.
func distributionPercents(body string) []float64 {
	loc := distributionRe.FindStringIndex(body)
	if loc == nil {
		return nil
	}
	block := body[loc[1]:]
	for _, stop := range []string{"Justificativa", "Timing"} {
		if i := strings.Index(block, stop); i >= 0 {
			block = block[:i]
		}
	}

	matches := percentRe.FindAllStringSubmatch(block, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := parseBrazilianDecimal(m[1])
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// parseBrazilianDecimal converts "1.234,56" to 1234.56.
func parseBrazilianDecimal(s string) (float64, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

// ValidateWaveSums checks that every wave's final distribution sums to
// 100% within tolerance. Waves without a distribution block, and plans
// without wave markers, are rejected: the model ignored the format.
func ValidateWaveSums(plan string) error {
	waves := ParseWaves(plan)
	if len(waves) == 0 {
		return fmt.Errorf("nenhuma onda encontrada no plano de rebalanceamento")
	}

	for i, w := range waves {
		if len(w.Percents) == 0 {
			return fmt.Errorf("onda %d sem bloco de distribuição final", i+1)
		}
		if sum := w.Sum(); math.Abs(sum-100.0) > waveSumTolerance {
			return fmt.Errorf("distribuição final da onda %d soma %.2f%%, esperado 100%%", i+1, sum)
		}
	}
	return nil
}
