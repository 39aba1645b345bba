package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AssetRepository is the read-only view of the asset catalogue. Tickets hold
// a nullable reference to an asset; this service never writes asset rows.
type AssetRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Asset, error)
	List(ctx context.Context, limit, offset int) ([]domain.Asset, error)
}

type assetRepository struct {
	q Querier
}

// NewAssetRepository instantiates repository.
func NewAssetRepository(q Querier) AssetRepository {
	return &assetRepository{q: q}
}

func (r *assetRepository) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	const query = `
        SELECT id, name, code, category, active, created_at
        FROM assets WHERE id=$1`
	var asset domain.Asset
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&asset.ID,
		&asset.Name,
		&asset.Code,
		&asset.Category,
		&asset.Active,
		&asset.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) List(ctx context.Context, limit, offset int) ([]domain.Asset, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, name, code, category, active, created_at
        FROM assets ORDER BY name ASC LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(
			&asset.ID,
			&asset.Name,
			&asset.Code,
			&asset.Category,
			&asset.Active,
			&asset.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	return result, rows.Err()
}
