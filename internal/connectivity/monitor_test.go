package connectivity

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakePinger struct {
	err   error
	calls int
}

func (p *fakePinger) Ping(context.Context) error {
	p.calls++
	return p.err
}

func proberReturning(err *error) Prober {
	return func(context.Context) error { return *err }
}

func TestCheckReportsBothLayers(t *testing.T) {
	var probeErr error
	remote := &fakePinger{}
	m := NewMonitor(proberReturning(&probeErr), remote, zap.NewNop())

	status := m.Check(context.Background())
	if !status.IsOnline || !status.RemoteReachable {
		t.Fatalf("esperava online e alcançável: %+v", status)
	}
	if status.LastCheck.IsZero() {
		t.Fatalf("lastCheck deveria estar preenchido")
	}

	// online mas com o remoto fora do ar
	remote.err = errors.New("503")
	status = m.Check(context.Background())
	if !status.IsOnline || status.RemoteReachable {
		t.Fatalf("esperava online sem remoto: %+v", status)
	}
}

func TestCheckSkipsRemotePingWhenOffline(t *testing.T) {
	probeErr := errors.New("sem rede")
	remote := &fakePinger{}
	m := NewMonitor(proberReturning(&probeErr), remote, zap.NewNop())

	status := m.Check(context.Background())
	if status.IsOnline || status.RemoteReachable {
		t.Fatalf("esperava offline: %+v", status)
	}
	if remote.calls != 0 {
		t.Fatalf("offline não deve sondar o remoto, houve %d pings", remote.calls)
	}
}

func TestOnChangeFiresOnlyOnTransitions(t *testing.T) {
	var probeErr error
	remote := &fakePinger{}
	m := NewMonitor(proberReturning(&probeErr), remote, zap.NewNop())

	var notified []Status
	unsubscribe := m.OnChange(func(s Status) { notified = append(notified, s) })

	m.Check(context.Background()) // offline -> online: notifica
	m.Check(context.Background()) // sem mudança: silêncio
	probeErr = errors.New("caiu")
	m.Check(context.Background()) // online -> offline: notifica

	if len(notified) != 2 {
		t.Fatalf("esperava 2 notificações, obteve %d", len(notified))
	}
	if !notified[0].IsOnline || notified[1].IsOnline {
		t.Fatalf("transições inesperadas: %+v", notified)
	}

	unsubscribe()
	probeErr = nil
	m.Check(context.Background())
	if len(notified) != 2 {
		t.Fatalf("callback cancelado não pode ser notificado")
	}
}

func TestStatusReturnsLastObservation(t *testing.T) {
	var probeErr error
	m := NewMonitor(proberReturning(&probeErr), &fakePinger{}, zap.NewNop())

	if s := m.Status(); s.IsOnline {
		t.Fatalf("antes do primeiro check o estado é offline: %+v", s)
	}

	m.Check(context.Background())
	if s := m.Status(); !s.IsOnline {
		t.Fatalf("status não refletiu o último check: %+v", s)
	}
}
