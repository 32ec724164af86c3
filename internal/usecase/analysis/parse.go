package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// stripFences removes a surrounding markdown code fence, which models
// sometimes emit even in JSON mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeJSON unmarshals a model reply into out, tolerating code fences.
func decodeJSON(reply string, out any) error {
	if err := json.Unmarshal([]byte(stripFences(reply)), out); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputParse, err)
	}
	return nil
}

// initialReply is the JSON shape of the first-stage model output.
type initialReply struct {
	Contextualizacao    string `json:"contextualizacao"`
	AlocacaoAtual       string `json:"alocacao_atual"`
	AlocacaoRecomendada string `json:"alocacao_recomendada"`
	ComparacaoEAnalise  string `json:"comparacao_e_analise"`
}

type wavesReply struct {
	Recomendacoes string `json:"recomendacoes_para_rebalanceamento"`
}

type exitCallReply struct {
	CallDeSaida string `json:"call_de_saida"`
}
