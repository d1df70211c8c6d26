package postgres

import (
	"context"
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

func (r *campaignRepo) SaveAll(ctx context.Context, campaigns []model.Campaign) error {
	if len(campaigns) == 0 {
		return nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("campaign repo: iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

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
		_, err = tx.Exec(ctx, `
			INSERT INTO campaigns (id, name, steps, crm_provider, crm_stage, created_at, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				steps = EXCLUDED.steps,
				crm_provider = EXCLUDED.crm_provider,
				crm_stage = EXCLUDED.crm_stage,
				synced_at = EXCLUDED.synced_at
		`, c.ID, c.Name, string(steps), c.CRMProvider, c.CRMStage, createdAt.UnixMicro(), now.UnixMicro())
		if err != nil {
			return fmt.Errorf("campaign repo: upsert %s: %w", c.ID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *campaignRepo) GetByID(ctx context.Context, id string) (model.Campaign, error) {
	row := r.db.Pool.QueryRow(ctx, selectCampaign+` WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if err != nil {
		return model.Campaign{}, mapError(err)
	}
	return c, nil
}

func (r *campaignRepo) List(ctx context.Context) ([]model.Campaign, error) {
	rows, err := r.db.Pool.Query(ctx, selectCampaign+` ORDER BY COALESCE(synced_at, created_at) DESC`)
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
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM campaigns`)
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
	var syncedAt *int64

	err := row.Scan(&c.ID, &c.Name, &steps, &c.CRMProvider, &c.CRMStage, &createdAt, &syncedAt)
	if err != nil {
		return model.Campaign{}, err
	}

	if err := json.Unmarshal([]byte(steps), &c.Steps); err != nil {
		return model.Campaign{}, fmt.Errorf("campaign repo: passos corrompidos em %s: %w", c.ID, err)
	}
	c.CreatedAt = time.UnixMicro(createdAt).UTC()
	if syncedAt != nil {
		t := time.UnixMicro(*syncedAt).UTC()
		c.SyncedAt = &t
	}
	return c, nil
}
