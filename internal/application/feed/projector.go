// Package feed mantiene la vista de movimientos recientes (más nuevo primero).
// Carga los últimos N del store y luego se alimenta de avisos push con el id de
// cada movimiento confirmado. Es solo una vista: no impone invariantes.
package feed

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
	"github.com/jhoicas/storeflow-api/pkg/logger"
)

// Source suscripción push a movimientos confirmados (LISTEN/NOTIFY, Redis, memoria).
// Listen vuelve cuando la suscripción ya está activa; handle se invoca desde otra
// goroutine hasta que ctx termine. done recibe la causa de la desconexión (nil si fue ctx).
type Source interface {
	Listen(ctx context.Context, handle func(movementID string)) (done <-chan error, err error)
}

// Projector vista ordenada y acotada del log de movimientos.
type Projector struct {
	movements repository.MovementRepository
	source    Source
	size      int
	log       *logger.Logger

	mu    sync.RWMutex
	items []*entity.Movement // CreatedAt descendente
	index map[string]struct{}

	subMu   sync.Mutex
	subs    map[int]chan *entity.Movement
	nextSub int

	readyOnce sync.Once
	ready     chan struct{}

	retryBase time.Duration
}

// NewProjector construye el proyector con capacidad size.
func NewProjector(movements repository.MovementRepository, source Source, size int, log *logger.Logger) *Projector {
	if size < 1 {
		size = 200
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Projector{
		movements: movements,
		source:    source,
		size:      size,
		log:       log.Component("feed"),
		index:     make(map[string]struct{}),
		subs:      make(map[int]chan *entity.Movement),
		ready:     make(chan struct{}),
		retryBase: 500 * time.Millisecond,
	}
}

// Ready se cierra tras la primera carga completa.
func (p *Projector) Ready() <-chan struct{} { return p.ready }

// Start carga la vista y consume avisos hasta que ctx termine. Si la fuente se cae
// (incluido un desborde de avisos), espera con backoff, recarga desde el store y vuelve
// a escuchar. El backoff se reinicia tras cada carga exitosa.
func (p *Projector) Start(ctx context.Context) error {
	b := p.newBackoff()
	for {
		loaded, err := p.run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if loaded {
			b = p.newBackoff()
		}
		next, _ := b.Next()
		p.log.Warn().Err(err).Dur("retry_in", next).Msg("feed desconectado")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(next):
		}
	}
}

// SetRetryBase cambia la espera inicial entre reconexiones (500ms por defecto).
func (p *Projector) SetRetryBase(d time.Duration) {
	if d > 0 {
		p.retryBase = d
	}
}

func (p *Projector) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(30*time.Second, retry.NewExponential(p.retryBase))
}

// run escucha, carga y aplica avisos hasta que la fuente se caiga. loaded indica si la
// vista llegó a recargarse en este intento.
func (p *Projector) run(ctx context.Context) (loaded bool, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// se escucha antes de cargar para no perder avisos; los repetidos se ignoran
	ids := make(chan string, 256)
	done, err := p.source.Listen(ctx, func(id string) {
		select {
		case ids <- id:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return false, err
	}

	if err := p.Load(ctx); err != nil {
		return false, err
	}
	p.readyOnce.Do(func() { close(p.ready) })

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case err := <-done:
			if err == nil {
				err = errors.New("la fuente de avisos se cerró")
			}
			return true, err
		case id := <-ids:
			p.handle(ctx, id)
		}
	}
}

// Load reemplaza la vista con los últimos N movimientos del store.
func (p *Projector) Load(ctx context.Context) error {
	list, err := p.movements.List(ctx, repository.MovementFilter{Limit: p.size})
	if err != nil {
		return err
	}
	index := make(map[string]struct{}, len(list))
	for _, m := range list {
		index[m.ID] = struct{}{}
	}
	p.mu.Lock()
	p.items = list
	p.index = index
	p.mu.Unlock()
	p.log.Debug().Int("count", len(list)).Msg("feed cargado")
	return nil
}

func (p *Projector) handle(ctx context.Context, id string) {
	if p.has(id) {
		return
	}
	m, err := p.movements.GetByID(ctx, id)
	if err != nil {
		p.log.Warn().Err(err).Str("movement_id", id).Msg("leer movimiento del feed")
		return
	}
	if m == nil {
		return
	}
	p.Apply(m)
}

func (p *Projector) has(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.index[id]
	return ok
}

// Apply inserta m en su posición (normalmente la cabeza) y descarta el más antiguo
// si se supera la capacidad. Devuelve false si ya estaba o si queda fuera de la vista.
func (p *Projector) Apply(m *entity.Movement) bool {
	p.mu.Lock()
	if _, ok := p.index[m.ID]; ok {
		p.mu.Unlock()
		return false
	}
	// ante igual CreatedAt, el recién llegado va primero
	i := sort.Search(len(p.items), func(i int) bool {
		return !p.items[i].CreatedAt.After(m.CreatedAt)
	})
	if i >= p.size {
		p.mu.Unlock()
		return false
	}
	p.items = append(p.items, nil)
	copy(p.items[i+1:], p.items[i:])
	p.items[i] = m
	p.index[m.ID] = struct{}{}
	if len(p.items) > p.size {
		for _, old := range p.items[p.size:] {
			delete(p.index, old.ID)
		}
		p.items = p.items[:p.size]
	}
	p.mu.Unlock()

	p.fanOut(m)
	return true
}

// Snapshot copia de la vista, más reciente primero.
func (p *Projector) Snapshot() []*entity.Movement {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*entity.Movement, len(p.items))
	copy(out, p.items)
	return out
}

// Subscribe devuelve un canal con cada movimiento nuevo de la vista y la función para
// cancelar la suscripción. Un suscriptor lento pierde avisos; nunca frena al proyector.
func (p *Projector) Subscribe(buffer int) (<-chan *entity.Movement, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan *entity.Movement, buffer)
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subs, id)
			p.subMu.Unlock()
			close(ch)
		})
	}
}

func (p *Projector) fanOut(m *entity.Movement) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- m:
		default:
		}
	}
}
