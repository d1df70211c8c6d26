package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgenny/conecta/internal/model"
)

type campaignRepo struct {
	db *DB
}

func NewCampaignRepository(db *DB) *campaignRepo {
	return &campaignRepo{db: db}
}

// SaveAll substitui cada campanha por inteiro (upsert por id), carimbando
// synced_at. O cache nunca mescla campos de versões anteriores.
func (r *campaignRepo) SaveAll(ctx context.Context, campaigns []model.Campaign) error {
	if len(campaigns) == 0 {
		return nil
	}

	tx, err := r.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("campaign repo: iniciar transação: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, c := range campaigns {
		steps, err := json.Marshal(model.NormalizeStepOrder(c.Steps))
		if err != nil {
			return fmt.Errorf("campaign repo: serializar passos: %w", err)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO campaigns (id, name, steps, crm_provider, crm_stage, created_at, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				steps = excluded.steps,
				crm_provider = excluded.crm_provider,
				crm_stage = excluded.crm_stage,
				synced_at = excluded.synced_at
		`, c.ID, c.Name, string(steps), c.CRMProvider, c.CRMStage, createdAt.UnixMicro(), now.UnixMicro())
		if err != nil {
			return fmt.Errorf("campaign repo: upsert %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (r *campaignRepo) GetByID(ctx context.Context, id string) (model.Campaign, error) {
	row := r.db.Conn.QueryRowContext(ctx, selectCampaign+` WHERE id = ?`, id)
	c, err := scanCampaign(row)
	if err != nil {
		return model.Campaign{}, mapError(err)
	}
	return c, nil
}

func (r *campaignRepo) List(ctx context.Context) ([]model.Campaign, error) {
	rows, err := r.db.Conn.QueryContext(ctx, selectCampaign+` ORDER BY COALESCE(synced_at, created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("campaign repo: listar: %w", err)
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *campaignRepo) Clear(ctx context.Context) error {
	_, err := r.db.Conn.ExecContext(ctx, `DELETE FROM campaigns`)
	if err != nil {
		return fmt.Errorf("campaign repo: limpar: %w", err)
	}
	return nil
}

const selectCampaign = `
	SELECT id, name, steps, crm_provider, crm_stage, created_at, synced_at
	FROM campaigns
`

func scanCampaign(row rowScanner) (model.Campaign, error) {
	var c model.Campaign
	var steps string
	var createdAt int64
	var syncedAt sql.NullInt64

	err := row.Scan(&c.ID, &c.Name, &steps, &c.CRMProvider, &c.CRMStage, &createdAt, &syncedAt)
	if err != nil {
		return model.Campaign{}, err
	}

	if err := json.Unmarshal([]byte(steps), &c.Steps); err != nil {
		return model.Campaign{}, fmt.Errorf("campaign repo: passos corrompidos em %s: %w", c.ID, err)
	}
	c.CreatedAt = time.UnixMicro(createdAt).UTC()
	if syncedAt.Valid {
		t := time.UnixMicro(syncedAt.Int64).UTC()
		c.SyncedAt = &t
	}
	return c, nil
}
