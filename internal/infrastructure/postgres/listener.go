package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/storeflow-api/internal/application/feed"
)

var _ feed.Source = (*Listener)(nil)

// Listener fuente del feed sobre LISTEN/NOTIFY. Cada aviso trae el id del movimiento.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
}

// NewListener construye el listener del canal.
func NewListener(pool *pgxpool.Pool, channel string) *Listener {
	return &Listener{pool: pool, channel: channel}
}

// Listen toma una conexión dedicada del pool, ejecuta LISTEN y vuelve. Los avisos se
// entregan desde otra goroutine hasta que ctx termine o la conexión se caiga.
func (l *Listener) Listen(ctx context.Context, handle func(movementID string)) (<-chan error, error) {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("listen: acquire: %w", err)
	}
	// la conexión queda en LISTEN: no debe volver al pool
	conn := pooled.Hijack()
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("listen %s: %w", l.channel, err)
	}

	done := make(chan error, 1)
	go func() {
		defer func() { _ = conn.Close(context.Background()) }()
		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					done <- nil
				} else {
					done <- fmt.Errorf("listen %s: %w", l.channel, err)
				}
				return
			}
			handle(n.Payload)
		}
	}()
	return done, nil
}
