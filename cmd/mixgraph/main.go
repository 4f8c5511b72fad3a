package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/mixgraph/internal/cli"
	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, apperrors.UserMessage(err))
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	return c.RootCommand().ExecuteContext(ctx)
}

// exitCode distinguishes bad input from failed evaluation and everything else.
func exitCode(err error) int {
	var evalErr *apperrors.EvaluationError
	switch {
	case errors.As(err, &evalErr):
		return 3
	case apperrors.GetCode(err) == apperrors.ErrCodeInvalidDocument,
		apperrors.GetCode(err) == apperrors.ErrCodeInvalidConfig,
		apperrors.GetCode(err) == apperrors.ErrCodeInvalidInput:
		return 2
	}
	return 1
}
