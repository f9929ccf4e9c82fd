package redisfeed_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/redisfeed"
)

// Requiere TEST_REDIS_ADDR (ej. localhost:6379).
func TestFeed_PublicaYEscucha(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR no definido")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := redisfeed.NewClient(ctx, addr, "", 0)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	f := redisfeed.New(client, fmt.Sprintf("movements-test-%d", time.Now().UnixNano()))
	got := make(chan string, 1)
	done, err := f.Listen(ctx, func(id string) { got <- id })
	require.NoError(t, err)

	require.NoError(t, f.PublishMovement(ctx, &entity.Movement{ID: "07010001"}))
	select {
	case id := <-got:
		assert.Equal(t, "07010001", id)
	case <-time.After(3 * time.Second):
		t.Fatal("sin aviso")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestFeed_ConsumidorLentoNoPierdeAvisos(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR no definido")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := redisfeed.NewClient(ctx, addr, "", 0)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	f := redisfeed.New(client, fmt.Sprintf("movements-slow-%d", time.Now().UnixNano()))
	release := make(chan struct{})
	got := make(chan string, 1000)
	_, err = f.Listen(ctx, func(id string) {
		<-release
		got <- id
	})
	require.NoError(t, err)

	const total = 500
	for i := 0; i < total; i++ {
		require.NoError(t, f.PublishMovement(ctx, &entity.Movement{ID: fmt.Sprintf("IN-%04d", i)}))
	}
	close(release)

	assert.Eventually(t, func() bool { return len(got) == total }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "IN-0000", <-got, "en orden de publicación")
}
