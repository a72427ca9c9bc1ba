package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/internal/catalog"
	"github.com/draftforge/draftforge/internal/models"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/internal/store/memory"
)

// fakeGenerator returns a fixed output or error.
type fakeGenerator struct {
	output string
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, toolKey, input string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("charges cost and logs success", func(t *testing.T) {
		backend := memory.NewBackend()
		account := seedAccount(t, backend, 100)
		gen := &fakeGenerator{output: "five key points"}
		runner := NewRunner(gen, backend.Ledger())

		result, err := runner.Run(ctx, account.AccountID, catalog.ToolSummarizer, "  long report text  ")
		require.NoError(t, err)
		require.Equal(t, "five key points", result.Output)
		require.Equal(t, int64(95), result.Balance)

		usage, err := backend.Ledger().ListUsage(ctx, account.AccountID, 10)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		require.Equal(t, models.UsageStatusSuccess, usage[0].Status)
		require.Equal(t, int64(5), usage[0].CreditsCharged)
		require.Equal(t, int64(len("long report text")), usage[0].InputChars)
		require.Equal(t, int64(len("five key points")), usage[0].OutputChars)
	})

	t.Run("unknown tool leaves no trace", func(t *testing.T) {
		backend := memory.NewBackend()
		account := seedAccount(t, backend, 100)
		gen := &fakeGenerator{output: "unused"}
		runner := NewRunner(gen, backend.Ledger())

		_, err := runner.Run(ctx, account.AccountID, "image_resizer", "input")
		require.ErrorIs(t, err, ErrUnknownTool)
		require.Zero(t, gen.calls)

		usage, err := backend.Ledger().ListUsage(ctx, account.AccountID, 10)
		require.NoError(t, err)
		require.Empty(t, usage)
	})

	t.Run("empty input is rejected before generation", func(t *testing.T) {
		backend := memory.NewBackend()
		account := seedAccount(t, backend, 100)
		gen := &fakeGenerator{output: "unused"}
		runner := NewRunner(gen, backend.Ledger())

		_, err := runner.Run(ctx, account.AccountID, catalog.ToolSummarizer, "   ")
		require.ErrorIs(t, err, ErrEmptyInput)
		require.Zero(t, gen.calls)
	})

	t.Run("generation failure logs without charging", func(t *testing.T) {
		backend := memory.NewBackend()
		account := seedAccount(t, backend, 100)
		genErr := errors.New("upstream timed out")
		runner := NewRunner(&fakeGenerator{err: genErr}, backend.Ledger())

		_, err := runner.Run(ctx, account.AccountID, catalog.ToolEmailWriter, "write to my boss")
		require.ErrorIs(t, err, genErr)

		balance, err := backend.Ledger().GetBalance(ctx, account.AccountID)
		require.NoError(t, err)
		require.Equal(t, int64(100), balance)

		usage, err := backend.Ledger().ListUsage(ctx, account.AccountID, 10)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		require.Equal(t, models.UsageStatusFailed, usage[0].Status)
		require.Equal(t, "upstream timed out", usage[0].ErrorMessage)
		require.Zero(t, usage[0].OutputChars)
	})

	t.Run("long failure messages are truncated", func(t *testing.T) {
		backend := memory.NewBackend()
		account := seedAccount(t, backend, 100)
		genErr := errors.New(strings.Repeat("x", 500))
		runner := NewRunner(&fakeGenerator{err: genErr}, backend.Ledger())

		_, err := runner.Run(ctx, account.AccountID, catalog.ToolEmailWriter, "input")
		require.ErrorIs(t, err, genErr)

		usage, err := backend.Ledger().ListUsage(ctx, account.AccountID, 10)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		require.Len(t, usage[0].ErrorMessage, maxErrorMessageLen)
	})

	t.Run("insufficient balance rejects after generation", func(t *testing.T) {
		backend := memory.NewBackend()
		account := seedAccount(t, backend, 3)
		gen := &fakeGenerator{output: "generated anyway"}
		runner := NewRunner(gen, backend.Ledger())

		_, err := runner.Run(ctx, account.AccountID, catalog.ToolSummarizer, "input")

		var insufficientErr *store.InsufficientCreditsError
		require.ErrorAs(t, err, &insufficientErr)
		require.Equal(t, int64(3), insufficientErr.Available)
		require.Equal(t, int64(5), insufficientErr.Required)

		balance, err := backend.Ledger().GetBalance(ctx, account.AccountID)
		require.NoError(t, err)
		require.Equal(t, int64(3), balance)

		usage, err := backend.Ledger().ListUsage(ctx, account.AccountID, 10)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		require.Equal(t, models.UsageStatusFailed, usage[0].Status)
		require.Equal(t, models.InsufficientCreditsMessage, usage[0].ErrorMessage)
	})
}

func seedAccount(t *testing.T, backend *memory.Backend, credits int64) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:    "Test User",
		Email:   "user@example.com",
		Role:    models.RoleIndividual,
		Credits: credits,
	}
	require.NoError(t, backend.Accounts().Create(context.Background(), account))
	return account
}
