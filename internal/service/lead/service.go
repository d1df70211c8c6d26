// Package lead concentra as regras de captura: validação, normalização
// de telefone e o carimbo de CRM herdado da campanha no momento da
// criação.
package lead

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/model"
	"github.com/dgenny/conecta/internal/sequence"
	"github.com/dgenny/conecta/internal/storage"
)

var (
	ErrNameRequired  = errors.New("nome é obrigatório")
	ErrPhoneRequired = errors.New("telefone é obrigatório")
)

type CreateInput struct {
	Name       string `json:"name" binding:"required"`
	Company    string `json:"company"`
	Phone      string `json:"phone" binding:"required"`
	CampaignID string `json:"campaignId"`
}

type Service struct {
	leads     storage.LeadRepository
	campaigns storage.CampaignRepository
	settings  storage.SettingRepository
	log       *zap.Logger
}

func New(leads storage.LeadRepository, campaigns storage.CampaignRepository, settings storage.SettingRepository, log *zap.Logger) *Service {
	return &Service{leads: leads, campaigns: campaigns, settings: settings, log: log}
}

// Create valida, normaliza o telefone e grava o lead como pendente. O
// provedor e o estágio de CRM da campanha são congelados no lead aqui:
// mudar a campanha depois não afeta leads já capturados.
func (s *Service) Create(ctx context.Context, input CreateInput) (model.Lead, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return model.Lead{}, ErrNameRequired
	}
	phone := strings.TrimSpace(input.Phone)
	if phone == "" {
		return model.Lead{}, ErrPhoneRequired
	}

	lead := model.Lead{
		Name:       name,
		Company:    strings.TrimSpace(input.Company),
		Phone:      sequence.NormalizePhone(phone),
		CampaignID: strings.TrimSpace(input.CampaignID),
	}

	if lead.CampaignID == "" {
		if selected, err := s.settings.Get(ctx, storage.SettingSelectedCampaign); err == nil {
			lead.CampaignID = selected
		}
	}
	if lead.CampaignID != "" {
		campaign, err := s.campaigns.GetByID(ctx, lead.CampaignID)
		switch {
		case err == nil:
			lead.CRMProvider = campaign.CRMProvider
			lead.CRMStage = campaign.CRMStage
		case errors.Is(err, storage.ErrNotFound):
			s.log.Warn("campanha informada não está no cache local",
				zap.String("campaign_id", lead.CampaignID),
			)
		default:
			return model.Lead{}, fmt.Errorf("lead: buscar campanha: %w", err)
		}
	}

	saved, err := s.leads.Save(ctx, lead)
	if err != nil {
		return model.Lead{}, fmt.Errorf("lead: salvar: %w", err)
	}

	s.log.Info("lead capturado",
		zap.String("lead_id", saved.ID),
		zap.String("campaign_id", saved.CampaignID),
	)
	return saved, nil
}

func (s *Service) List(ctx context.Context) ([]model.Lead, error) {
	return s.leads.ListAll(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (model.Lead, error) {
	return s.leads.GetByID(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	return s.leads.Stats(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.leads.Delete(ctx, id)
}

// ClearSent descarta os leads já sincronizados e retorna quantos saíram.
func (s *Service) ClearSent(ctx context.Context) (int64, error) {
	deleted, err := s.leads.ClearSent(ctx)
	if err != nil {
		return 0, fmt.Errorf("lead: limpar enviados: %w", err)
	}
	s.log.Info("leads enviados descartados", zap.Int64("total", deleted))
	return deleted, nil
}

// ExportCSV serializa todos os leads para conferência fora do sistema.
func (s *Service) ExportCSV(ctx context.Context) ([]byte, error) {
	leads, err := s.leads.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("lead: exportar: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"ID", "Nome", "Empresa", "Telefone", "Status", "Criado em", "Última tentativa", "Tentativas", "Erro"})
	for _, lead := range leads {
		lastAttempt := ""
		if lead.LastAttempt != nil {
			lastAttempt = lead.LastAttempt.Format(time.RFC3339)
		}
		w.Write([]string{
			lead.ID,
			lead.Name,
			lead.Company,
			lead.Phone,
			string(lead.Status),
			lead.CreatedAt.Format(time.RFC3339),
			lastAttempt,
			strconv.Itoa(lead.Attempts),
			lead.Error,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("lead: escrever csv: %w", err)
	}
	return buf.Bytes(), nil
}
