package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/usecase/retrieval"
)

// retriever fetches context chunks from a collection (ISP).
type retriever interface {
	Retrieve(ctx context.Context, collection, query string, k int) ([]domain.RetrievedDocument, error)
}

// completer sends a prompt to the chat model (ISP).
type completer interface {
	Complete(ctx context.Context, stage, prompt string, temperature float32) (string, error)
}

// Chain runs the three-stage portfolio analysis: the initial advisor
// analysis, the wave-based rebalancing plan and the per-asset exit call.
type Chain struct {
	retriever retriever
	completer completer
	logger    *zap.Logger
}

// NewChain creates an analysis chain.
func NewChain(r retriever, c completer, logger *zap.Logger) *Chain {
	return &Chain{retriever: r, completer: c, logger: logger}
}

// Run executes all three stages against the deal's performance collection
// and the shared monthly collection and returns the merged result.
func (ch *Chain) Run(ctx context.Context, performanceCollection, monthlyCollection string) (domain.AnalysisResult, error) {
	perfCtx, err := ch.contextFor(ctx, performanceCollection, QueryPerformance, retrieval.KBroad)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	allocCtx, err := ch.contextFor(ctx, monthlyCollection, QueryAllocation, retrieval.KBroad)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	initial, initialJSON, err := ch.runInitial(ctx, perfCtx, allocCtx)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	wavesPlan, err := ch.runWaves(ctx, initialJSON, perfCtx, allocCtx)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	exitCall, err := ch.runExitCall(ctx, performanceCollection, wavesPlan)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	return initial.Merge(wavesPlan, exitCall), nil
}

func (ch *Chain) contextFor(ctx context.Context, collection, query string, k int) (string, error) {
	docs, err := ch.retriever.Retrieve(ctx, collection, query, k)
	if err != nil {
		return "", fmt.Errorf("retrieve from %s: %w", collection, err)
	}
	if len(docs) == 0 {
		ch.logger.Warn("no context retrieved", zap.String("collection", collection), zap.String("query", query))
	}
	return retrieval.JoinTexts(docs), nil
}

func (ch *Chain) runInitial(ctx context.Context, perfCtx, allocCtx string) (domain.AnalysisResult, string, error) {
	reply, err := ch.completer.Complete(ctx, "initial", initialPrompt(perfCtx, allocCtx), TemperatureInitial)
	if err != nil {
		return domain.AnalysisResult{}, "", fmt.Errorf("initial stage: %w", err)
	}

	var parsed initialReply
	if err := decodeJSON(reply, &parsed); err != nil {
		return domain.AnalysisResult{}, "", fmt.Errorf("initial stage: %w", err)
	}

	result := domain.AnalysisResult{
		Contextualizacao:    parsed.Contextualizacao,
		AlocacaoAtual:       parsed.AlocacaoAtual,
		AlocacaoRecomendada: parsed.AlocacaoRecomendada,
		ComparacaoEAnalise:  parsed.ComparacaoEAnalise,
	}

	// the waves stage receives the initial analysis verbatim as JSON
	raw, err := json.Marshal(parsed)
	if err != nil {
		return domain.AnalysisResult{}, "", fmt.Errorf("initial stage: marshal: %w", err)
	}
	return result, string(raw), nil
}

// runWaves produces the rebalancing plan and verifies that each wave's
// final distribution sums to 100%. A plan failing the check gets one
// corrective reprompt before the run is abandoned.
func (ch *Chain) runWaves(ctx context.Context, initialJSON, perfCtx, allocCtx string) (string, error) {
	plan, err := ch.completeWaves(ctx, wavesPrompt(initialJSON, perfCtx, allocCtx))
	if err != nil {
		return "", err
	}

	sumErr := ValidateWaveSums(plan)
	if sumErr == nil {
		return plan, nil
	}

	ch.logger.Warn("wave distribution check failed, reprompting", zap.Error(sumErr))
	plan, err = ch.completeWaves(ctx, wavesCorrectionPrompt(plan, sumErr.Error()))
	if err != nil {
		return "", err
	}
	if sumErr = ValidateWaveSums(plan); sumErr != nil {
		return "", fmt.Errorf("waves stage: %w: %w", domain.ErrOutputParse, sumErr)
	}
	return plan, nil
}

func (ch *Chain) completeWaves(ctx context.Context, prompt string) (string, error) {
	reply, err := ch.completer.Complete(ctx, "waves", prompt, TemperatureWaves)
	if err != nil {
		return "", fmt.Errorf("waves stage: %w", err)
	}
	var parsed wavesReply
	if err := decodeJSON(reply, &parsed); err != nil {
		return "", fmt.Errorf("waves stage: %w", err)
	}
	return parsed.Recomendacoes, nil
}

func (ch *Chain) runExitCall(ctx context.Context, performanceCollection, wavesPlan string) (string, error) {
	detailCtx, err := ch.contextFor(ctx, performanceCollection, QueryDetailPosition, retrieval.KDetail)
	if err != nil {
		return "", err
	}

	reply, err := ch.completer.Complete(ctx, "exit_call", exitCallPrompt(wavesPlan, detailCtx), TemperatureExitCall)
	if err != nil {
		return "", fmt.Errorf("exit call stage: %w", err)
	}
	var parsed exitCallReply
	if err := decodeJSON(reply, &parsed); err != nil {
		return "", fmt.Errorf("exit call stage: %w", err)
	}
	return parsed.CallDeSaida, nil
}
