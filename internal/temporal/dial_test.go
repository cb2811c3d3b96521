package temporal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, retryDelay(1))
	assert.Equal(t, 4*time.Second, retryDelay(4))
	assert.Equal(t, maxDialDelay, retryDelay(15))
	assert.Equal(t, maxDialDelay, retryDelay(60))
}

func TestDialGivesUpWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dial(ctx, DialOptions{HostPort: "127.0.0.1:1", Namespace: "default"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
