// Package tools is the invocation gateway. It validates a tool run,
// calls the text generator, and settles the charge against the ledger so
// that every attempt leaves exactly one usage log row.
package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/draftforge/draftforge/internal/catalog"
	"github.com/draftforge/draftforge/internal/generator"
	"github.com/draftforge/draftforge/internal/models"
	"github.com/draftforge/draftforge/internal/store"
)

var (
	// ErrUnknownTool is returned when the tool key is not in the catalog.
	ErrUnknownTool = errors.New("tools: unknown tool")
	// ErrEmptyInput is returned when the input is empty after trimming.
	ErrEmptyInput = errors.New("tools: input is empty")
)

// Error messages persisted to usage logs are capped at this length.
const maxErrorMessageLen = 200

// RunResult is the outcome of a successful tool run.
type RunResult struct {
	Tool    catalog.ToolDefinition
	Output  string
	Balance int64
}

// Runner executes tool invocations against a generator and a ledger.
type Runner struct {
	gen    generator.Generator
	ledger store.LedgerStore
}

// NewRunner creates a tool runner.
func NewRunner(gen generator.Generator, ledger store.LedgerStore) *Runner {
	return &Runner{
		gen:    gen,
		ledger: ledger,
	}
}

// Run executes one tool invocation for the account.
//
// Generation happens before the charge, so an account is never billed for
// output it did not receive. A generation failure is recorded as a FAILED
// usage row without deducting credits; if that recording itself fails the
// original generation error is still the one returned. An insufficient
// balance at charge time surfaces as *store.InsufficientCreditsError, with
// the rejected attempt already logged by the ledger.
func (r *Runner) Run(ctx context.Context, accountID uuid.UUID, toolKey, input string) (*RunResult, error) {
	tool, ok := catalog.ToolByKey(toolKey)
	if !ok {
		return nil, ErrUnknownTool
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}
	inputChars := int64(len(input))

	output, genErr := r.gen.Generate(ctx, tool.Key, input)
	if genErr != nil {
		r.logFailure(ctx, accountID, tool, inputChars, genErr)
		return nil, genErr
	}

	balance, err := r.ledger.ChargeAndLog(ctx, &store.ChargeRequest{
		AccountID:      accountID,
		ToolKey:        tool.Key,
		CreditsCharged: tool.Cost,
		InputChars:     inputChars,
		OutputChars:    int64(len(output)),
		Status:         models.UsageStatusSuccess,
	})
	if err != nil {
		return nil, err
	}

	return &RunResult{
		Tool:    tool,
		Output:  output,
		Balance: balance,
	}, nil
}

// logFailure records a FAILED usage row for a generation error. Best
// effort; a logging failure must not mask the generation error.
func (r *Runner) logFailure(ctx context.Context, accountID uuid.UUID, tool catalog.ToolDefinition, inputChars int64, genErr error) {
	_, err := r.ledger.ChargeAndLog(ctx, &store.ChargeRequest{
		AccountID:      accountID,
		ToolKey:        tool.Key,
		CreditsCharged: tool.Cost,
		InputChars:     inputChars,
		OutputChars:    0,
		Status:         models.UsageStatusFailed,
		ErrorMessage:   truncateError(genErr),
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("account_id", accountID.String()).
			Str("tool_key", tool.Key).
			Msg("Failed to record usage log for generation error")
	}
}

func truncateError(err error) string {
	msg := err.Error()
	if msg == "" {
		return "Unknown error"
	}
	if len(msg) > maxErrorMessageLen {
		return msg[:maxErrorMessageLen]
	}
	return msg
}
