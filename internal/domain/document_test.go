package domain

import (
	"testing"
	"time"
)

func TestSanitizeCollectionName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"relatorio_2024", "relatorio_2024"},
		{"carteira mensal", "carteira_mensal"},
		{"report (final).pdf", "report__final__pdf"},
		{"João/123", "Jo__o_123"},
		{"a-b_C9", "a-b_C9"},
	}
	for _, tc := range cases {
		if got := SanitizeCollectionName(tc.in); got != tc.want {
			t.Errorf("SanitizeCollectionName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeCollectionName_Idempotent(t *testing.T) {
	inputs := []string{"a b c", "çãí", "x%&*y", "plain_name-1"}
	for _, in := range inputs {
		once := SanitizeCollectionName(in)
		twice := SanitizeCollectionName(once)
		if once != twice {
			t.Errorf("sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
		for _, r := range once {
			ok := r == '_' || r == '-' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !ok {
				t.Errorf("sanitize output %q contains invalid rune %q", once, r)
			}
		}
	}
}

func TestCollectionBase(t *testing.T) {
	day := time.Date(2024, 12, 17, 10, 0, 0, 0, time.UTC)
	got := CollectionBase("26_4821", "104532", day)
	want := "26_4821_104532_2024-12-17"
	if got != want {
		t.Errorf("CollectionBase = %q, want %q", got, want)
	}
}

func TestAnalysisResultMerge(t *testing.T) {
	initial := AnalysisResult{
		Contextualizacao:    "cenário",
		AlocacaoAtual:       "atual",
		AlocacaoRecomendada: "recomendada",
		ComparacaoEAnalise:  "comparação",
		Rebalanceamento:     "placeholder",
	}

	merged := initial.Merge("ondas", "saída")

	if merged.Rebalanceamento != "ondas" || merged.CallDeSaida != "saída" {
		t.Errorf("merge did not overwrite later-stage fields: %+v", merged)
	}
	if merged.Contextualizacao != "cenário" || merged.AlocacaoAtual != "atual" ||
		merged.AlocacaoRecomendada != "recomendada" || merged.ComparacaoEAnalise != "comparação" {
		t.Errorf("merge mutated stage-INITIAL fields: %+v", merged)
	}
	if initial.Rebalanceamento != "placeholder" {
		t.Error("merge mutated the receiver")
	}
}
