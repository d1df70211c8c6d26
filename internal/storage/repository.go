package storage

import (
	"context"
	"errors"

	"github.com/dgenny/conecta/internal/model"
)

var ErrNotFound = errors.New("not found")

// Chaves conhecidas do SettingRepository.
const (
	SettingSelectedCampaign = "selected_campaign"
	SettingOperatorProfile  = "operator_profile"
)

// LeadRepository é a fila durável de leads. Toda mutação de status passa
// por UpdateStatus, que executa leitura-modificação-escrita em uma única
// transação para não perder atualizações concorrentes.
type LeadRepository interface {
	Save(ctx context.Context, lead model.Lead) (model.Lead, error)
	GetByID(ctx context.Context, id string) (model.Lead, error)
	UpdateStatus(ctx context.Context, id string, status model.LeadStatus, cause string) error
	// ListPending retorna pendentes, mais antigos primeiro.
	ListPending(ctx context.Context) ([]model.Lead, error)
	// ListFailed retorna falhados ordenados pela última tentativa mais
	// antiga (justiça de retry).
	ListFailed(ctx context.Context) ([]model.Lead, error)
	// ListAll retorna todos, mais recentes primeiro (exibição).
	ListAll(ctx context.Context) ([]model.Lead, error)
	Stats(ctx context.Context) (model.Stats, error)
	ClearSent(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// CampaignRepository é o cache local de campanhas. SaveAll faz upsert por
// id carimbando synced_at; nunca mescla campos de um registro existente.
type CampaignRepository interface {
	SaveAll(ctx context.Context, campaigns []model.Campaign) error
	GetByID(ctx context.Context, id string) (model.Campaign, error)
	// List retorna as campanhas, sincronizadas mais recentemente primeiro.
	List(ctx context.Context) ([]model.Campaign, error)
	Clear(ctx context.Context) error
}

// SettingRepository guarda estado escalar: campanha selecionada, perfil
// do operador e marcadores de sequência disparada.
type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
