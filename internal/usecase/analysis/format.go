package analysis

import (
	"strings"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// FormatBBCode renders the analysis as the BBCode comment posted to the
// deal timeline. The allocation and wave fields have ", " turned into
// line breaks so itemized lists read one item per line; section headers
// are emitted even when a field is empty.
func FormatBBCode(r domain.AnalysisResult) string {
	alocacaoAtual := strings.ReplaceAll(r.AlocacaoAtual, ", ", "\n")
	alocacaoRecomendada := strings.ReplaceAll(r.AlocacaoRecomendada, ", ", "\n")
	rebalanceamento := strings.ReplaceAll(r.Rebalanceamento, ", ", "\n")

	var b strings.Builder
	b.WriteString("[SIZE=4][B]Análise da carteira do cliente:[/B][/SIZE]\n\n\n")
	b.WriteString("[SIZE=3][B]Cenário de Investimentos:[/B][/SIZE]\n" + r.Contextualizacao + "\n\n")
	b.WriteString("[SIZE=3][B]Alocação Atual:[/B][/SIZE]\n" + alocacaoAtual + "\n\n")
	b.WriteString("[SIZE=3][B]Alocação Recomendada:[/B][/SIZE]\n" + alocacaoRecomendada + "\n\n")
	b.WriteString("[SIZE=3][B]Comparação e Análise:[/B][/SIZE]\n" + r.ComparacaoEAnalise + "\n\n")
	b.WriteString("[SIZE=3][B]Recomendações para Rebalanceamento:[/B][/SIZE]\n" + rebalanceamento + "\n\n")
	b.WriteString("[SIZE=3][B]Call de Saída:[/B][/SIZE]\n" + r.CallDeSaida + "\n\n")
	return b.String()
}
