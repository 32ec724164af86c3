package analysis

import "fmt"

// Retrieval queries used to assemble prompt context.
const (
	QueryPerformance    = "Relatório de performance da carteira do cliente"
	QueryAllocation     = "Relatório de recomendação de alocação de ativos"
	QueryDetailPosition = "Posição detalhada dos ativos"
)

// Sampling temperatures per analysis stage. The waves stage runs at zero
// because its output must satisfy an exact arithmetic constraint.
const (
	TemperatureInitial  float32 = 0.625
	TemperatureWaves    float32 = 0.0
	TemperatureExitCall float32 = 0.2
)

const initialFormatInstructions = `Responda com um objeto JSON contendo exatamente as seguintes chaves, todas com valores string:
- "contextualizacao": breve parágrafo contextualizando o cenário de investimentos de acordo com o relatório de recomendação de alocação de ativos estruturado.
- "alocacao_atual": analise a alocação atual do cliente e compare-a com a alocação recomendada para identificar o tipo de perfil do cliente. Determine o perfil com base na proximidade dos percentuais atuais em relação aos percentuais recomendados, onde a menor diferença média entre os percentuais indica o perfil mais provável. Além disso, forneça um detalhamento claro e organizado da composição atual da carteira do cliente, incluindo **percentuais** e **valores investidos** em cada ativo ou classe de ativos. Apresente os resultados separados por quebras de linha. Exemplo de formato:
Perfil: (tipo de perfil)
- Pós-Fixado: x% - R$ y
- Renda Variável: x% - R$ y
- Inflação: x% - R$ y
- "alocacao_recomendada": apresente a alocação de ativos sugerida no relatório de recomendação, especificando os PERCENTUAIS e VALORES PROPOSTOS para cada classe de ativos. Identifique o perfil da carteira do cliente com base na alocação atual se comparado com o padrão identificado na carteira recomendada, forneça as recomendações de alocação apropriadas para esse perfil baseada no relatório de recomendação e separe cada informação por uma quebra de linha.
- "comparacao_e_analise": um parágrafo com uma comparação detalhada entre a alocação atual e a recomendada, identificando diferenças chave e analisando o impacto em termos de risco e retorno de forma bem desenvolvida e estruturada.`

// initialPrompt builds the first-stage prompt analyzing the client's
// portfolio against the monthly recommendation.
func initialPrompt(performanceContext, allocationContext string) string {
	return fmt.Sprintf(
		"Atue como um assessor de investimentos especializado em alocação de ativos e análise de performance de carteiras. "+
			"Sua tarefa é analisar os seguintes relatórios e dados:\n\n"+
			"1. **Relatório de Performance da Carteira do Cliente:**\n%s\n\n"+
			"2. **Relatório de Recomendação de Alocação de Ativos:**\n%s\n\n"+
			"Faça uma análise aprofundada e pouco genérica dos relatórios e conclua sua tarefa.\n\n"+
			"Sua tarefa é:\n"+
			"1. Analise a alocação atual da carteira do cliente conforme os dados de alocação atual e compare com as recomendações de alocação presentes no relatório de recomendação.\n"+
			"Exemplo de Formato para alocação (sintético):\n"+
			"Perfil: Conservador\n"+
			"- Pós Fixado: 73,00%% - R$ 881.756,74\n"+
			"- Inflação: 17,50%% - R$ 211.382,86\n"+
			"- Prefixado: 0,00%% - R$ 0,00\n"+
			"- Multimercados: 2,00%% - R$ 24.157,69\n"+
			"- Ações: 1,50%% - R$ 18.118,27\n"+
			"- Ativos Internacionais: 5,00%% - R$ 60.393,22\n"+
			"- Alternativos: 1,00%% - R$ 12.078,85\n"+
			"2. Identifique se a carteira do cliente está alinhada com a recomendação de alocação em termos de exposição a diferentes classes de ativos (como renda fixa, renda variável, investimentos alternativos, etc.).\n"+
			"OBS:\n"+
			"- Tenha certeza de que os valores nos quais você está se baseando são valores reais existentes nos relatórios, e não inventados.\n"+
			"- Lembre-se de que o rebalanceamento da carteira não deve ocorrer de forma imediata, mas sim ser realizado gradualmente em ondas.\n\n"+
			"%s\n\n"+
			"Certifique-se de fornecer uma análise clara e fundamentada, utilizando linguagem acessível ao cliente, sem jargões técnicos excessivos.\n"+
			"NÃO responda respostas genéricas sem relevância.\n",
		performanceContext, allocationContext, initialFormatInstructions)
}

const wavesFormatInstructions = `Responda com um objeto JSON contendo exatamente a chave "recomendacoes_para_rebalanceamento", com valor string: apenas as recomendações de rebalanceamento em ondas, no formato solicitado. Cada onda deve apresentar todas as classes de ativos após o rebalanceamento, com percentuais e valores, totalizando exatamente 100%.`

// wavesPrompt builds the second-stage prompt turning the initial analysis
// into a staged rebalancing plan whose per-wave allocations sum to 100%.
func wavesPrompt(initialJSON, performanceContext, allocationContext string) string {
	return fmt.Sprintf(
		"Você é um agente especializado em recomendar rebalanceamentos em ondas. Sua tarefa é transformar as recomendações iniciais em um plano de rebalanceamento gradual, rigorosamente organizado em ondas.\n\n"+
			"Recomendações Iniciais:\n%s\n\n"+
			"Relatórios disponíveis:\n"+
			"1. **Relatório de Performance da Carteira do Cliente:**\n%s\n\n"+
			"2. **Relatório de Recomendação de Alocação de Ativos:**\n%s\n\n"+
			"Instruções Detalhadas:\n"+
			"1. Primeiro, calcule o valor total da carteira usando os dados disponíveis. Caso o valor total já esteja explícito, utilize-o. Caso não, deduza de forma coerente e explique brevemente como chegou a esse valor.\n"+
			"2. Apresente as recomendações em uma ou mais ondas: [B]1ª Onda:[/B], [B]2ª Onda:[/B], etc.\n"+
			"3. Cada onda representa um estado completo e final da carteira após o rebalanceamento daquela etapa.\n"+
			"4. Liste todas as classes de ativos após cada onda, com percentuais e valores. A soma de todos os percentuais deve ser exatamente 100%%. Não use aproximações, nem 99,99%% nem 100,01%%. Deve ser 100%% exato.\n"+
			"5. Ao fazer alterações:\n"+
			"   - Indique a classe reduzida, mostrando percentual e valor antes e depois, além do valor movimentado.\n"+
			"   - Indique a(s) classe(s) aumentada(s), mostrando percentual e valor antes e depois, além do valor movimentado.\n"+
			"   - Se introduzir uma nova classe, reduza outras proporcionalmente. Se reduzir uma classe, aumente outras na mesma proporção.\n"+
			"6. Inclua justificativa e timing para cada onda.\n"+
			"7. Se for necessário, arredonde valores, mas sempre de forma coerente para chegar exatamente em 100%%. Caso após os cálculos a soma não seja 100%%, ajuste ligeiramente os percentuais (por exemplo, altere a última casa decimal) até obter 100%% exato.\n"+
			"8. Antes de apresentar a resposta final, verifique novamente seus cálculos. Se a soma não for 100%%, revise os percentuais.\n"+
			"9. Não invente valores fora do escopo fornecido. Se algum dado estiver faltando, explique como deduziu logicamente. Entretanto, mesmo deduzindo, você deve garantir a soma exata de 100%%.\n"+
			"10. Não use termos como 'aproximadamente' ou 'cerca de'. Seja específico e forneça valores exatos, mesmo que precise ajustá-los minimamente.\n"+
			"11. Não forneça respostas genéricas. Seja específico, coerente e preciso.\n\n"+
			"Exemplo de Formato (sintético):\n"+
			"[B]1ª Onda:[/B]\n"+
			"- Reduzir Renda Variável Brasil de 28,17%% (R$ X) para 20%% (R$ Y), movimentação: R$ Z.\n"+
			"- Aumentar Ativos Internacionais de 2,15%% (R$ A) para 10,15%% (R$ B), movimentação: R$ C.\n"+
			"- Manter Renda Fixa Brasil em 69,85%% (R$ D).\n"+
			"Distribuição final 1ª Onda (100%%):\n"+
			"- Renda Fixa Brasil: XX%% (R$ XX)\n"+
			"- Renda Variável Brasil: YY%% (R$ YY)\n"+
			"- Ativos Internacionais: ZZ%% (R$ ZZ)\n"+
			"Justificativa: ...\n"+
			"Timing: ...\n\n"+
			"OBS:\n"+
			"- Verifique a soma final após cada onda. Deve ser exatamente 100%%.\n"+
			"- Ajuste percentuais o quanto for necessário até chegar a 100%%.\n\n"+
			"%s\n\n"+
			"NÃO responda com saídas genéricas. Seja preciso e coerente.",
		initialJSON, performanceContext, allocationContext, wavesFormatInstructions)
}

// wavesCorrectionPrompt asks the model to fix a plan whose distributions
// do not sum to 100%.
func wavesCorrectionPrompt(previousPlan, problem string) string {
	return fmt.Sprintf(
		"O plano de rebalanceamento abaixo contém ondas cuja distribuição final não soma exatamente 100%%.\n\n"+
			"Plano anterior:\n%s\n\n"+
			"Problema detectado: %s\n\n"+
			"Corrija os percentuais de cada onda para que a soma da distribuição final seja exatamente 100%%, ajustando a última casa decimal se necessário. "+
			"Mantenha o mesmo formato, as mesmas classes de ativos e os mesmos valores sempre que possível.\n\n"+
			"%s",
		previousPlan, problem, wavesFormatInstructions)
}

const exitCallFormatInstructions = `Responda com um objeto JSON contendo exatamente a chave "call_de_saida", com valor string: uma 'call de saída' com recomendações claras e alinhadas às ondas.`

// exitCallPrompt builds the third-stage prompt producing per-asset
// divestment calls aligned with the wave plan.
func exitCallPrompt(wavesPlan, detailedPositionContext string) string {
	return fmt.Sprintf(
		"Você é um agente especializado em criar calls de saída a nível de ativo, alinhadas com as ondas de rebalanceamento definidas anteriormente.\n\n"+
			"Abaixo seguem as recomendações definidas em ondas:\n%s\n\n"+
			"Aqui está a posição detalhada da carteira do cliente:\n%s\n\n"+
			"Sua tarefa: Gerar uma 'call de saída' que detalhe, para cada onda, quais ativos individuais devem ser desinvestidos. Essas recomendações de desinvestimento precisam:\n"+
			"- Estar numericamente alinhadas com as proporções e valores estabelecidos nas ondas anteriores.\n"+
			"- Refletir os mesmos percentuais e valores definidos para cada classe de ativos nas ondas, garantindo que a soma dos desinvestimentos em determinados ativos corresponda às movimentações previstas.\n"+
			"- Não inventar valores; utilizar apenas os dados da posição detalhada e as alocações definidas nas ondas.\n"+
			"- Priorizar o desinvestimento dos ativos com menor performance (rendimentos inferiores), principalmente aqueles com maiores valores investidos, conforme as indicações já dadas nas ondas.\n\n"+
			"Instruções detalhadas:\n"+
			"1. Analise cada onda e as classes de ativos que devem ser reduzidas ou das quais se deve sair completamente.\n"+
			"2. Verifique, na posição detalhada, quais ativos pertencem a essas classes e têm menor rendimento.\n"+
			"3. Selecione os ativos a serem desinvestidos para atingir o valor e percentual de redução previstos em cada onda.\n"+
			"4. A soma dos valores desinvestidos por ativo em cada onda deve corresponder exatamente (ou o mais próximo possível) ao valor total de desinvestimento previsto para a classe naquela onda.\n"+
			"5. Caso não haja dados suficientes para um cálculo exato, ajuste a recomendação de forma coerente e justifique brevemente.\n"+
			"6. Use quebras de linha para melhor legibilidade.\n\n"+
			"%s\n"+
			"Exemplo de Formato (simplificado):\n"+
			"[B]1ª Onda:[/B]\n"+
			"- Reduzir CDBs com menor rentabilidade, priorizando:\n"+
			"  - CDB BANCO VOITER S.A. - DEZ/2024: R$ 114.747,43\n"+
			"  - CDB BMG - DEZ/2024: R$ 5.115,49\n"+
			"(total desinvestido nesta onda: R$ 119.862,92, alinhado com o valor definido na onda)\n\n"+
			"Adapte o exemplo acima aos valores reais da carteira e às ondas definidas, garantindo o alinhamento numérico exato.",
		wavesPlan, detailedPositionContext, exitCallFormatInstructions)
}
