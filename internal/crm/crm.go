// Package crm integra o funil de vendas externo. O relay é sempre
// melhor esforço: falha de CRM nunca derruba a sincronização do lead.
package crm

import (
	"context"
)

type Stage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Probability int    `json:"probability,omitempty"`
}

// LeadPayload é o recorte do lead que interessa ao CRM.
type LeadPayload struct {
	Name    string
	Company string
	Phone   string
	Stage   string
}

// Adapter é implementado por cada provedor suportado.
type Adapter interface {
	ID() string
	SendLead(ctx context.Context, lead LeadPayload) error
	Stages(ctx context.Context) ([]Stage, error)
	IsConfigured() bool
}

type ErrUnsupportedProvider struct {
	Provider string
}

func (e *ErrUnsupportedProvider) Error() string {
	return "crm: provedor não suportado: " + e.Provider
}

// Registry resolve o adapter pelo id do provedor gravado na campanha.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.ID()] = a
	}
	return r
}

func (r *Registry) SendLead(ctx context.Context, provider string, lead LeadPayload) error {
	adapter, ok := r.adapters[provider]
	if !ok {
		return &ErrUnsupportedProvider{Provider: provider}
	}
	return adapter.SendLead(ctx, lead)
}

func (r *Registry) Stages(ctx context.Context, provider string) ([]Stage, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, &ErrUnsupportedProvider{Provider: provider}
	}
	return adapter.Stages(ctx)
}

// IsConfigured responde false para provedores desconhecidos, sem erro:
// o chamador usa isso para decidir se o lead entra na fila degradada.
func (r *Registry) IsConfigured(provider string) bool {
	adapter, ok := r.adapters[provider]
	return ok && adapter.IsConfigured()
}
