package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joblens/joblens/internal/models"
)

type HistoryRepository interface {
	// Upsert overwrites score/algorithm/rank/breakdown for the (user, job)
	// key; interaction flags on an existing row are preserved.
	Upsert(ctx context.Context, h *models.MatchHistory) error

	// ApplyInteraction sets interaction flags under a row lock so concurrent
	// cascades for the same pair serialize.
	ApplyInteraction(ctx context.Context, userID, jobID string, t models.InteractionType, at time.Time, feedback string) error

	ListByUser(ctx context.Context, userID string) ([]models.MatchHistory, error)
	ListByUserSince(ctx context.Context, userID string, since time.Time) ([]models.MatchHistory, error)
}

type historyRepo struct {
	db *gorm.DB
}

func NewHistoryRepo(db *gorm.DB) HistoryRepository {
	return &historyRepo{db: db}
}

func (r *historyRepo) Upsert(ctx context.Context, h *models.MatchHistory) error {
	now := time.Now().UTC()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"score", "algorithm", "rank", "breakdown", "updated_at",
			}),
		}).
		Create(h).Error
}

func (r *historyRepo) ApplyInteraction(ctx context.Context, userID, jobID string, t models.InteractionType, at time.Time, feedback string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var h models.MatchHistory
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND job_id = ?", userID, jobID).
			Take(&h).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			h = models.MatchHistory{
				UserID:    userID,
				JobID:     jobID,
				CreatedAt: at,
			}
		case err != nil:
			return err
		}

		h.MarkInteraction(t, at)
		if feedback != "" {
			h.Feedback = feedback
		}
		h.UpdatedAt = at

		// Two processes can both miss the row and race the insert. The
		// conflict clause merges column-wise so the loser's flags land on
		// the winner's row instead of overwriting it: first timestamp per
		// flag wins, matching MarkInteraction.
		return tx.
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "job_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"viewed_at":    gorm.Expr("COALESCE(match_history.viewed_at, excluded.viewed_at)"),
					"clicked_at":   gorm.Expr("COALESCE(match_history.clicked_at, excluded.clicked_at)"),
					"applied_at":   gorm.Expr("COALESCE(match_history.applied_at, excluded.applied_at)"),
					"favorited_at": gorm.Expr("COALESCE(match_history.favorited_at, excluded.favorited_at)"),
					"hidden_at":    gorm.Expr("COALESCE(match_history.hidden_at, excluded.hidden_at)"),
					"feedback":     gorm.Expr("CASE WHEN excluded.feedback <> '' THEN excluded.feedback ELSE match_history.feedback END"),
					"updated_at":   gorm.Expr("excluded.updated_at"),
				}),
			}).
			Create(&h).Error
	})
}

func (r *historyRepo) ListByUser(ctx context.Context, userID string) ([]models.MatchHistory, error) {
	var rows []models.MatchHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	return rows, err
}

func (r *historyRepo) ListByUserSince(ctx context.Context, userID string, since time.Time) ([]models.MatchHistory, error) {
	var rows []models.MatchHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND updated_at >= ?", userID, since).
		Find(&rows).Error
	return rows, err
}
