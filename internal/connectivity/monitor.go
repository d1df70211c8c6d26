// Package connectivity observa duas camadas de rede distintas: presença
// de rede (alguém atende na internet) e alcançabilidade do banco remoto.
// Estar online não implica alcançar o remoto, e vice-versa importa para
// o caminho degradado de sincronização.
package connectivity

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Status struct {
	IsOnline        bool      `json:"isOnline"`
	RemoteReachable bool      `json:"remoteReachable"`
	LastCheck       time.Time `json:"lastCheck"`
}

// Pinger é o recorte do cliente remoto usado para sondar alcançabilidade.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober responde se há rede de forma geral, sem envolver o remoto.
type Prober func(ctx context.Context) error

// TCPProber sonda presença de rede com um dial TCP curto.
func TCPProber(addr string) Prober {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		conn.Close()
		return nil
	}
}

type Monitor struct {
	probe  Prober
	remote Pinger
	log    *zap.Logger

	mu        sync.Mutex
	status    Status
	listeners map[int]func(Status)
	nextID    int
}

func NewMonitor(probe Prober, remote Pinger, log *zap.Logger) *Monitor {
	return &Monitor{
		probe:     probe,
		remote:    remote,
		log:       log,
		listeners: make(map[int]func(Status)),
	}
}

// Status retorna o último resultado observado, sem sondar de novo.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Check sonda as duas camadas e notifica os inscritos quando qualquer
// uma mudou. O fan-out é síncrono: quando Check retorna, todos os
// callbacks já rodaram.
func (m *Monitor) Check(ctx context.Context) Status {
	online := m.probe(ctx) == nil
	reachable := false
	if online {
		reachable = m.remote.Ping(ctx) == nil
	}

	m.mu.Lock()
	previous := m.status
	m.status = Status{
		IsOnline:        online,
		RemoteReachable: reachable,
		LastCheck:       time.Now(),
	}
	current := m.status
	changed := previous.IsOnline != current.IsOnline || previous.RemoteReachable != current.RemoteReachable
	var fns []func(Status)
	if changed {
		fns = make([]func(Status), 0, len(m.listeners))
		for _, fn := range m.listeners {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	if changed {
		m.log.Info("conectividade mudou",
			zap.Bool("online", current.IsOnline),
			zap.Bool("remote_reachable", current.RemoteReachable),
		)
		for _, fn := range fns {
			fn(current)
		}
	}
	return current
}

// OnChange registra um callback de mudança de estado e devolve a função
// que cancela a inscrição.
func (m *Monitor) OnChange(fn func(Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}
