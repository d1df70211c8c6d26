// Package firestore fala com o banco remoto via REST, sem SDK. O mesmo
// projeto é compartilhado com o app web legado, então os documentos
// preservam os nomes de campo originais (nome, empresa, telefone,
// mensagens, localId).
package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/config"
	"github.com/dgenny/conecta/internal/model"
)

// ErrPermissionDenied indica problema de configuração (regras do
// Firestore), acionável pelo operador; não é um erro transitório.
var ErrPermissionDenied = errors.New("permissões do Firebase insuficientes, verifique as regras do Firestore")

type Client struct {
	http *http.Client
	cfg  config.FirebaseConfig
	log  *zap.Logger
}

func New(cfg config.FirebaseConfig, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg,
		log:  log,
	}
}

func (c *Client) documentsURL() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/projects/%s/databases/(default)/documents", base, c.cfg.ProjectID)
}

// SaveLead grava o lead na coleção remota e retorna o id do documento.
// offlineId preserva a identidade local para auditoria e deduplicação.
func (c *Client) SaveLead(ctx context.Context, lead model.Lead) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	doc := map[string]any{
		"fields": map[string]any{
			"nome":        stringValue(lead.Name),
			"empresa":     stringValue(lead.Company),
			"telefone":    stringValue(lead.Phone),
			"campaignId":  stringValue(lead.CampaignID),
			"crmProvider": stringValue(lead.CRMProvider),
			"crmStage":    stringValue(lead.CRMStage),
			"offlineId":   stringValue(lead.ID),
			"createdAt":   timestampValue(now),
			"syncedAt":    timestampValue(now),
		},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("firestore: marshal lead: %w", err)
	}

	url := fmt.Sprintf("%s/leads?key=%s", c.documentsURL(), c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("firestore: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("firestore: gravar lead: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusForbidden || strings.Contains(string(raw), "PERMISSION_DENIED") {
		return "", fmt.Errorf("%w (status %d)", ErrPermissionDenied, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("firestore: gravar lead: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var created struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("firestore: resposta inválida: %w", err)
	}
	return docID(created.Name), nil
}

// ListCampaigns busca as campanhas do usuário, mais recentes primeiro.
// O localId, quando presente, vale como chave do cache offline.
func (c *Client) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	query := map[string]any{
		"structuredQuery": map[string]any{
			"from": []map[string]any{{"collectionId": "campaigns"}},
			"orderBy": []map[string]any{
				{"field": map[string]any{"fieldPath": "createdAt"}, "direction": "DESCENDING"},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("firestore: marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/users/%s:runQuery?key=%s", c.documentsURL(), c.cfg.UserID, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("firestore: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firestore: listar campanhas: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("firestore: listar campanhas: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var results []struct {
		Document *struct {
			Name   string                     `json:"name"`
			Fields map[string]json.RawMessage `json:"fields"`
		} `json:"document"`
	}
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("firestore: resposta inválida: %w", err)
	}

	var campaigns []model.Campaign
	for _, r := range results {
		if r.Document == nil {
			continue
		}
		c := decodeCampaign(r.Document.Name, r.Document.Fields)
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

// Ping verifica alcançabilidade do serviço: qualquer resposta HTTP conta
// como alcançável (até 401/403 — a rota existe), só erro de transporte não.
func (c *Client) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/leads?pageSize=1&key=%s", c.documentsURL(), c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("firestore: new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("firestore: inalcançável: %w", err)
	}
	resp.Body.Close()
	return nil
}

func decodeCampaign(name string, fields map[string]json.RawMessage) model.Campaign {
	campaign := model.Campaign{
		ID:          fieldString(fields, "localId"),
		Name:        fieldString(fields, "nome"),
		CRMProvider: fieldString(fields, "crmProvider"),
		CRMStage:    fieldString(fields, "crmStage"),
		CreatedAt:   time.Now().UTC(),
	}
	if campaign.ID == "" {
		campaign.ID = docID(name)
	}

	var steps struct {
		ArrayValue struct {
			Values []struct {
				MapValue struct {
					Fields map[string]json.RawMessage `json:"fields"`
				} `json:"mapValue"`
			} `json:"values"`
		} `json:"arrayValue"`
	}
	if raw, ok := fields["mensagens"]; ok {
		if err := json.Unmarshal(raw, &steps); err == nil {
			for i, v := range steps.ArrayValue.Values {
				f := v.MapValue.Fields
				step := model.MessageStep{
					ID:       fieldString(f, "id"),
					Type:     stepType(fieldString(f, "tipo")),
					Content:  fieldString(f, "conteudo"),
					Data:     fieldString(f, "base64"),
					MimeType: fieldString(f, "mimeType"),
					FileName: fieldString(f, "fileName"),
					Order:    fieldInt(f, "ordem"),
				}
				if step.Order == 0 {
					step.Order = i + 1
				}
				campaign.Steps = append(campaign.Steps, step)
			}
		}
	}
	campaign.Steps = model.NormalizeStepOrder(campaign.Steps)
	return campaign
}

// O schema legado usa rótulos em português para o tipo do passo.
func stepType(legacy string) model.StepType {
	switch legacy {
	case "texto", "text":
		return model.StepTypeText
	case "imagem", "image":
		return model.StepTypeImage
	case "documento", "document":
		return model.StepTypeDocument
	case "video":
		return model.StepTypeVideo
	case "audio":
		return model.StepTypeAudio
	default:
		return model.StepType(legacy)
	}
}

func stringValue(s string) map[string]string {
	return map[string]string{"stringValue": s}
}

func timestampValue(rfc3339 string) map[string]string {
	return map[string]string{"timestampValue": rfc3339}
}

func fieldString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var v struct {
		StringValue string `json:"stringValue"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.StringValue
}

func fieldInt(fields map[string]json.RawMessage, key string) int {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var v struct {
		IntegerValue string `json:"integerValue"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	n, _ := strconv.Atoi(v.IntegerValue)
	return n
}

func docID(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
