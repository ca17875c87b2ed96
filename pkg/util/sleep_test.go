package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Sleep(ctx, time.Hour)
	require.Less(t, time.Since(start), time.Second)
}

func TestSleepSkipsNonPositive(t *testing.T) {
	start := time.Now()
	Sleep(context.Background(), -time.Hour)
	Sleep(context.Background(), 0)
	require.Less(t, time.Since(start), time.Second)
}
