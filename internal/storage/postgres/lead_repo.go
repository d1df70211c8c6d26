package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dgenny/conecta/internal/model"
)

type leadRepo struct {
	db *DB
}

func NewLeadRepository(db *DB) *leadRepo {
	return &leadRepo{db: db}
}

func (r *leadRepo) Save(ctx context.Context, lead model.Lead) (model.Lead, error) {
	now := time.Now().UTC()
	if lead.ID == "" {
		lead.ID = fmt.Sprintf("lead_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
	}
	lead.Status = model.LeadStatusPending
	lead.Attempts = 0
	lead.CreatedAt = now

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO leads (id, name, company, phone, campaign_id, crm_provider, crm_stage, status, created_at, attempts, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, '')
	`, lead.ID, lead.Name, lead.Company, lead.Phone,
		lead.CampaignID, lead.CRMProvider, lead.CRMStage,
		lead.Status, lead.CreatedAt.UnixMicro())
	if err != nil {
		return model.Lead{}, fmt.Errorf("lead repo: salvar: %w", err)
	}
	return lead, nil
}

func (r *leadRepo) GetByID(ctx context.Context, id string) (model.Lead, error) {
	row := r.db.Pool.QueryRow(ctx, selectLead+` WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		return model.Lead{}, mapError(err)
	}
	return lead, nil
}

func (r *leadRepo) UpdateStatus(ctx context.Context, id string, status model.LeadStatus, cause string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("lead repo: iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	var attempts int
	err = tx.QueryRow(ctx, `SELECT attempts FROM leads WHERE id = $1 FOR UPDATE`, id).Scan(&attempts)
	if err != nil {
		return mapError(err)
	}

	errMsg := ""
	switch status {
	case model.LeadStatusFailed:
		attempts++
		errMsg = cause
	case model.LeadStatusSent:
		errMsg = ""
	}

	now := time.Now().UTC().UnixMicro()
	_, err = tx.Exec(ctx,
		`UPDATE leads SET status = $1, last_attempt = $2, attempts = $3, error = $4 WHERE id = $5`,
		status, now, attempts, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("lead repo: atualizar status: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *leadRepo) ListPending(ctx context.Context) ([]model.Lead, error) {
	return r.list(ctx, selectLead+` WHERE status = 'pending' ORDER BY created_at ASC`)
}

func (r *leadRepo) ListFailed(ctx context.Context) ([]model.Lead, error) {
	return r.list(ctx, selectLead+` WHERE status = 'failed' ORDER BY COALESCE(last_attempt, created_at) ASC`)
}

func (r *leadRepo) ListAll(ctx context.Context) ([]model.Lead, error) {
	return r.list(ctx, selectLead+` ORDER BY created_at DESC`)
}

func (r *leadRepo) Stats(ctx context.Context) (model.Stats, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return model.Stats{}, fmt.Errorf("lead repo: stats: %w", err)
	}
	defer rows.Close()

	var stats model.Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return model.Stats{}, err
		}
		switch model.LeadStatus(status) {
		case model.LeadStatusPending:
			stats.Pending = count
		case model.LeadStatusSent:
			stats.Sent = count
		case model.LeadStatusFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	return stats, rows.Err()
}

func (r *leadRepo) ClearSent(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM leads WHERE status = 'sent'`)
	if err != nil {
		return 0, fmt.Errorf("lead repo: limpar enviados: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *leadRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("lead repo: remover: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows)
	}
	return nil
}

const selectLead = `
	SELECT id, name, company, phone, campaign_id, crm_provider, crm_stage, status, created_at, last_attempt, attempts, error
	FROM leads
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (model.Lead, error) {
	var lead model.Lead
	var status string
	var createdAt int64
	var lastAttempt *int64

	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Company, &lead.Phone,
		&lead.CampaignID, &lead.CRMProvider, &lead.CRMStage,
		&status, &createdAt, &lastAttempt, &lead.Attempts, &lead.Error,
	)
	if err != nil {
		return model.Lead{}, err
	}

	lead.Status = model.LeadStatus(status)
	lead.CreatedAt = time.UnixMicro(createdAt).UTC()
	if lastAttempt != nil {
		t := time.UnixMicro(*lastAttempt).UTC()
		lead.LastAttempt = &t
	}
	return lead, nil
}

func (r *leadRepo) list(ctx context.Context, query string) ([]model.Lead, error) {
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("lead repo: listar: %w", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}
