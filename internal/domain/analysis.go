package domain

// AnalysisResult is the single structured record threaded through the three
// analysis stages. Stage INITIAL fills the first four fields; stage WAVES
// writes Rebalanceamento; stage EXIT_CALL writes CallDeSaida. Fields not
// overwritten by a later stage keep their stage-INITIAL value.
type AnalysisResult struct {
	Contextualizacao    string
	AlocacaoAtual       string
	AlocacaoRecomendada string
	ComparacaoEAnalise  string
	Rebalanceamento     string
	CallDeSaida         string
}

// Merge returns a copy of r with the wave and exit-call fields overwritten.
func (r AnalysisResult) Merge(waves, exitCall string) AnalysisResult {
	out := r
	out.Rebalanceamento = waves
	out.CallDeSaida = exitCall
	return out
}
