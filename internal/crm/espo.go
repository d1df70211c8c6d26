package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Estágios padrão do funil de Opportunity do EspoCRM, usados quando os
// metadados customizados não podem ser consultados.
var espoDefaultStages = []Stage{
	{ID: "Prospecting", Name: "Prospecting", Probability: 10},
	{ID: "Qualification", Name: "Qualification", Probability: 20},
	{ID: "Proposal", Name: "Proposal", Probability: 50},
	{ID: "Negotiation", Name: "Negotiation", Probability: 80},
	{ID: "Closed Won", Name: "Closed Won", Probability: 100},
	{ID: "Closed Lost", Name: "Closed Lost", Probability: 0},
}

var ErrNotConfigured = errors.New("espocrm não está configurado, verifique ESPO_URL e ESPO_API_KEY")

type EspoAdapter struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewEspoAdapter(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *EspoAdapter {
	return &EspoAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (a *EspoAdapter) ID() string { return "espocrm" }

func (a *EspoAdapter) IsConfigured() bool {
	return a.baseURL != "" && a.apiKey != ""
}

// SendLead tenta criar um Contact e, se a instância negar, cai para a
// entidade Lead. Instalações restringem as duas de formas diferentes.
func (a *EspoAdapter) SendLead(ctx context.Context, lead LeadPayload) error {
	if !a.IsConfigured() {
		return ErrNotConfigured
	}

	first, last := splitName(lead.Name)
	contact := map[string]any{
		"firstName":   first,
		"lastName":    last,
		"accountName": lead.Company,
		"phoneNumber": lead.Phone,
		"source":      "Web Site",
	}

	if err := a.request(ctx, http.MethodPost, "/Contact", contact, nil); err == nil {
		return nil
	} else {
		a.log.Warn("espocrm recusou Contact, tentando Lead", zap.Error(err))
	}

	entity := map[string]any{
		"firstName":   first,
		"lastName":    last,
		"accountName": lead.Company,
		"phoneNumber": lead.Phone,
		"status":      "New",
		"source":      "Web Site",
	}
	if err := a.request(ctx, http.MethodPost, "/Lead", entity, nil); err != nil {
		return fmt.Errorf("crm: criar lead no espocrm: %w", err)
	}
	return nil
}

// Stages consulta os metadados da instância; qualquer falha devolve os
// estágios padrão em vez de erro.
func (a *EspoAdapter) Stages(ctx context.Context) ([]Stage, error) {
	if !a.IsConfigured() {
		return espoDefaultStages, nil
	}

	var metadata struct {
		EntityDefs struct {
			Opportunity struct {
				Fields struct {
					Stage struct {
						Options []string `json:"options"`
					} `json:"stage"`
				} `json:"fields"`
			} `json:"Opportunity"`
		} `json:"entityDefs"`
	}
	if err := a.request(ctx, http.MethodGet, "/Metadata", nil, &metadata); err != nil {
		a.log.Warn("não foi possível buscar stages customizados, usando padrões", zap.Error(err))
		return espoDefaultStages, nil
	}

	options := metadata.EntityDefs.Opportunity.Fields.Stage.Options
	if len(options) == 0 {
		return espoDefaultStages, nil
	}

	stages := make([]Stage, 0, len(options))
	for _, opt := range options {
		stages = append(stages, Stage{ID: opt, Name: opt})
	}
	return stages, nil
}

func (a *EspoAdapter) request(ctx context.Context, method, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	url := a.baseURL + "/api/v1" + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("requisição %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	}
	return nil
}

// splitName quebra o nome completo em firstName e lastName do EspoCRM.
// Nome de uma palavra só vira first e last iguais, o campo é obrigatório.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], parts[0]
	}
	return parts[0], strings.Join(parts[1:], " ")
}
