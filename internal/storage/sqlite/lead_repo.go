package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dgenny/conecta/internal/model"
)

type leadRepo struct {
	db *DB
}

func NewLeadRepository(db *DB) *leadRepo {
	return &leadRepo{db: db}
}

func newLeadID(now time.Time) string {
	return fmt.Sprintf("lead_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

func (r *leadRepo) Save(ctx context.Context, lead model.Lead) (model.Lead, error) {
	now := time.Now().UTC()
	if lead.ID == "" {
		lead.ID = newLeadID(now)
	}
	lead.Status = model.LeadStatusPending
	lead.Attempts = 0
	lead.CreatedAt = now

	query := `
		INSERT INTO leads (id, name, company, phone, campaign_id, crm_provider, crm_stage, status, created_at, attempts, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '')
	`
	_, err := r.db.Conn.ExecContext(ctx, query,
		lead.ID, lead.Name, lead.Company, lead.Phone,
		lead.CampaignID, lead.CRMProvider, lead.CRMStage,
		lead.Status, lead.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return model.Lead{}, fmt.Errorf("lead repo: salvar: %w", err)
	}
	return lead, nil
}

func (r *leadRepo) GetByID(ctx context.Context, id string) (model.Lead, error) {
	row := r.db.Conn.QueryRowContext(ctx, selectLead+` WHERE id = ?`, id)
	lead, err := scanLead(row)
	if err != nil {
		return model.Lead{}, mapError(err)
	}
	return lead, nil
}

// UpdateStatus é o único caminho de leitura-modificação-escrita da fila e
// roda inteiro em uma transação para que sincronizador e retry manual não
// se atropelem.
func (r *leadRepo) UpdateStatus(ctx context.Context, id string, status model.LeadStatus, cause string) error {
	tx, err := r.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("lead repo: iniciar transação: %w", err)
	}
	defer tx.Rollback()

	var attempts int
	err = tx.QueryRowContext(ctx, `SELECT attempts FROM leads WHERE id = ?`, id).Scan(&attempts)
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
	_, err = tx.ExecContext(ctx,
		`UPDATE leads SET status = ?, last_attempt = ?, attempts = ?, error = ? WHERE id = ?`,
		status, now, attempts, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("lead repo: atualizar status: %w", err)
	}

	return tx.Commit()
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
	rows, err := r.db.Conn.QueryContext(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
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
	res, err := r.db.Conn.ExecContext(ctx, `DELETE FROM leads WHERE status = 'sent'`)
	if err != nil {
		return 0, fmt.Errorf("lead repo: limpar enviados: %w", err)
	}
	return res.RowsAffected()
}

func (r *leadRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.Conn.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("lead repo: remover: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapError(sql.ErrNoRows)
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
	var lastAttempt sql.NullInt64

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
	if lastAttempt.Valid {
		t := time.UnixMicro(lastAttempt.Int64).UTC()
		lead.LastAttempt = &t
	}
	return lead, nil
}

func (r *leadRepo) list(ctx context.Context, query string) ([]model.Lead, error) {
	rows, err := r.db.Conn.QueryContext(ctx, query)
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
