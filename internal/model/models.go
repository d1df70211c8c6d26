package model

import "time"

type LeadStatus string

const (
	LeadStatusPending LeadStatus = "pending"
	LeadStatusSent    LeadStatus = "sent"
	LeadStatusFailed  LeadStatus = "failed"
)

// Lead é uma submissão do formulário aguardando entrega durável.
// O ID é gerado localmente e nunca muda durante a vida do registro.
type Lead struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Company     string     `json:"company"`
	Phone       string     `json:"phone"`
	CampaignID  string     `json:"campaignId,omitempty"`
	CRMProvider string     `json:"crmProvider,omitempty"`
	CRMStage    string     `json:"crmStage,omitempty"`
	Status      LeadStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
	Attempts    int        `json:"attempts"`
	Error       string     `json:"error,omitempty"`
}

// Stats agrega a fila por status. Calculado por varredura completa,
// aceitável no volume de um evento (centenas de registros).
type Stats struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Campaign é o espelho local de uma definição de sequência remota,
// indexado pelo mesmo id usado na UI (localId). Cada sync substitui o
// registro inteiro por upsert, nunca mescla campos.
type Campaign struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Steps       []MessageStep `json:"steps"`
	CRMProvider string        `json:"crmProvider,omitempty"`
	CRMStage    string        `json:"crmStage,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	SyncedAt    *time.Time    `json:"syncedAt,omitempty"`
}

// OperatorProfile identifica o operador do estande. O telefone deriva a
// identidade da instância de envio no gateway de mensagens.
type OperatorProfile struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone"`
}
