package main

import (
	"context"
	"fmt"
	"os"
	"time"
)

// stopTimeout bounds graceful shutdown once the signal context is done.
const stopTimeout = 30 * time.Second

type application interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Err() error
	Done() <-chan os.Signal
}

func run(ctx context.Context, app application) int {
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build application: %v\n", err)
		return 1
	}
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start application: %v\n", err)
		return 1
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop application: %v\n", err)
		return 1
	}
	return 0
}
