package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joblens/joblens/internal/models"
	"github.com/joblens/joblens/internal/utils"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	Upsert(ctx context.Context, p *models.UserProfile) error
	UpdateLatentFactors(ctx context.Context, userID string, factors []float32, clusterLabel string) error
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *profileRepo) Upsert(ctx context.Context, p *models.UserProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"home_region", "macro_region", "desired_salary_min", "desired_salary_max",
				"preferences", "category_interests", "updated_at",
			}),
		}).
		Create(p).Error
}

// UpdateLatentFactors is the retraining writeback: only the model-owned
// columns move, declared preferences stay untouched.
func (r *profileRepo) UpdateLatentFactors(ctx context.Context, userID string, factors []float32, clusterLabel string) error {
	return r.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"latent_factors": pgvector.NewVector(factors),
			"cluster_label":  clusterLabel,
			"updated_at":     time.Now().UTC(),
		}).Error
}
