package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/joblens/joblens/internal/models"
	"github.com/joblens/joblens/internal/utils"
)

type JobRepository interface {
	GetByID(ctx context.Context, jobID string) (*models.Job, error)
	ListActive(ctx context.Context, limit int) ([]models.Job, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Job, error)
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) GetByID(ctx context.Context, jobID string) (*models.Job, error) {
	var j models.Job
	err := r.db.WithContext(ctx).
		Where("id = ?", jobID).
		Take(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &j, err
}

// ListActive returns the candidate pool, newest postings first so the pool
// ceiling trims the stalest listings.
func (r *jobRepo) ListActive(ctx context.Context, limit int) ([]models.Job, error) {
	var jobs []models.Job
	q := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("posted_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&jobs).Error
	return jobs, err
}

func (r *jobRepo) ListByIDs(ctx context.Context, ids []string) ([]models.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&jobs).Error
	return jobs, err
}
