// Package campaign cuida do cache local de campanhas, da campanha
// selecionada no estande e do perfil do operador.
package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/model"
	"github.com/dgenny/conecta/internal/storage"
)

var ErrNoneSelected = errors.New("nenhuma campanha selecionada")

// Remote é a fonte autoritativa de campanhas.
type Remote interface {
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
}

type Service struct {
	campaigns storage.CampaignRepository
	settings  storage.SettingRepository
	remote    Remote
	log       *zap.Logger
}

func New(campaigns storage.CampaignRepository, settings storage.SettingRepository, remote Remote, log *zap.Logger) *Service {
	return &Service{campaigns: campaigns, settings: settings, remote: remote, log: log}
}

// List devolve o cache local. Funciona offline por definição.
func (s *Service) List(ctx context.Context) ([]model.Campaign, error) {
	return s.campaigns.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (model.Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}

// Refresh busca as campanhas no remoto e renova o cache local. Com o
// remoto fora do ar o cache anterior permanece intacto.
func (s *Service) Refresh(ctx context.Context) ([]model.Campaign, error) {
	campaigns, err := s.remote.ListCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("campaign: buscar no remoto: %w", err)
	}
	if err := s.campaigns.SaveAll(ctx, campaigns); err != nil {
		return nil, fmt.Errorf("campaign: atualizar cache: %w", err)
	}
	s.log.Info("cache de campanhas renovado", zap.Int("total", len(campaigns)))
	return campaigns, nil
}

// Select marca a campanha ativa do estande. A campanha precisa existir
// no cache local.
func (s *Service) Select(ctx context.Context, id string) error {
	if _, err := s.campaigns.GetByID(ctx, id); err != nil {
		return fmt.Errorf("campaign: selecionar: %w", err)
	}
	if err := s.settings.Set(ctx, storage.SettingSelectedCampaign, id); err != nil {
		return fmt.Errorf("campaign: gravar seleção: %w", err)
	}
	s.log.Info("campanha selecionada", zap.String("campaign_id", id))
	return nil
}

// Selected devolve a campanha ativa, ou ErrNoneSelected.
func (s *Service) Selected(ctx context.Context) (model.Campaign, error) {
	id, err := s.settings.Get(ctx, storage.SettingSelectedCampaign)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Campaign{}, ErrNoneSelected
		}
		return model.Campaign{}, fmt.Errorf("campaign: ler seleção: %w", err)
	}
	campaign, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// a seleção aponta para uma campanha que saiu do cache
			return model.Campaign{}, ErrNoneSelected
		}
		return model.Campaign{}, fmt.Errorf("campaign: buscar selecionada: %w", err)
	}
	return campaign, nil
}

// Profile devolve o perfil do operador, vazio quando nunca preenchido.
func (s *Service) Profile(ctx context.Context) (model.OperatorProfile, error) {
	raw, err := s.settings.Get(ctx, storage.SettingOperatorProfile)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.OperatorProfile{}, nil
		}
		return model.OperatorProfile{}, fmt.Errorf("campaign: ler perfil: %w", err)
	}
	var profile model.OperatorProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return model.OperatorProfile{}, fmt.Errorf("campaign: decodificar perfil: %w", err)
	}
	return profile, nil
}

// SaveProfile grava o perfil do operador. O telefone identifica a
// instância de envio no gateway, então não pode ficar vazio.
func (s *Service) SaveProfile(ctx context.Context, profile model.OperatorProfile) error {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Company = strings.TrimSpace(profile.Company)
	profile.Phone = strings.TrimSpace(profile.Phone)
	if profile.Phone == "" {
		return errors.New("campaign: telefone do operador é obrigatório")
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("campaign: codificar perfil: %w", err)
	}
	if err := s.settings.Set(ctx, storage.SettingOperatorProfile, string(raw)); err != nil {
		return fmt.Errorf("campaign: gravar perfil: %w", err)
	}
	s.log.Info("perfil do operador atualizado", zap.String("name", profile.Name))
	return nil
}
