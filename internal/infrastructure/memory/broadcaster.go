package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// ErrListenerOverflow se entrega por done cuando un listener no alcanzó a consumir sus
// avisos: el aviso no se pierde en silencio, el listener debe recargar y volver a escuchar.
var ErrListenerOverflow = errors.New("memory: buffer del listener desbordado")

const defaultListenerBuffer = 1024

type listener struct {
	ch       chan string
	overflow chan struct{} // se cierra una sola vez al desbordar
}

// Broadcaster notificador en proceso: el ledger publica cada movimiento confirmado y
// los listeners (proyector del feed) reciben su id.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*listener
	buffer int
}

// NewBroadcaster crea el notificador.
func NewBroadcaster() *Broadcaster {
	return NewBroadcasterSize(defaultListenerBuffer)
}

// NewBroadcasterSize crea el notificador con buffer avisos por listener.
func NewBroadcasterSize(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = defaultListenerBuffer
	}
	return &Broadcaster{subs: make(map[int]*listener), buffer: buffer}
}

// PublishMovement implementa ledger.Publisher. Si el buffer de un listener está lleno,
// el listener se da de baja y su done recibe ErrListenerOverflow.
func (b *Broadcaster) PublishMovement(_ context.Context, m *entity.Movement) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, l := range b.subs {
		select {
		case l.ch <- m.ID:
		default:
			delete(b.subs, id)
			close(l.overflow)
		}
	}
	return nil
}

// Listen implementa feed.Source. La suscripción queda registrada al volver.
func (b *Broadcaster) Listen(ctx context.Context, handle func(movementID string)) (<-chan error, error) {
	l := &listener{ch: make(chan string, b.buffer), overflow: make(chan struct{})}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = l
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		var cause error
		defer func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			done <- cause
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.overflow:
				cause = ErrListenerOverflow
				return
			case movementID := <-l.ch:
				handle(movementID)
			}
		}
	}()
	return done, nil
}
