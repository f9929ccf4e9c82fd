// Package redisfeed distribuye los ids de movimientos confirmados por Redis pub/sub,
// para que varias réplicas de la API mantengan su feed al día.
package redisfeed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/storeflow-api/internal/application/feed"
	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

var (
	_ ledger.Publisher = (*Feed)(nil)
	_ feed.Source      = (*Feed)(nil)
)

// Feed publica y escucha el mismo canal.
type Feed struct {
	client  *redis.Client
	channel string
}

// New construye el feed sobre un cliente existente.
func New(client *redis.Client, channel string) *Feed {
	return &Feed{client: client, channel: channel}
}

// NewClient crea el cliente y verifica la conexión.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return client, nil
}

// PublishMovement publica el id del movimiento (solo se llama después del commit).
func (f *Feed) PublishMovement(ctx context.Context, m *entity.Movement) error {
	if err := f.client.Publish(ctx, f.channel, m.ID).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", m.ID, err)
	}
	return nil
}

// Listen se suscribe al canal y vuelve cuando Redis confirmó la suscripción. Los
// mensajes se leen uno a uno con ReceiveMessage (sin buffer intermedio que descarte);
// si la conexión cae, done recibe el error.
func (f *Feed) Listen(ctx context.Context, handle func(movementID string)) (<-chan error, error) {
	sub := f.client.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", f.channel, err)
	}

	done := make(chan error, 1)
	go func() {
		defer func() { _ = sub.Close() }()
		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					done <- nil
				} else {
					done <- fmt.Errorf("redis: recibir de %s: %w", f.channel, err)
				}
				return
			}
			handle(msg.Payload)
		}
	}()
	return done, nil
}
