package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/joblens/joblens/internal/models"
	"github.com/joblens/joblens/internal/utils"
)

// In-memory repository doubles shared by the service tests.

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile

	factorWrites map[string][]float32
	labels       map[string]string
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		profiles:     make(map[string]*models.UserProfile),
		factorWrites: make(map[string][]float32),
		labels:       make(map[string]string),
	}
}

func (r *fakeProfileRepo) GetByUserID(_ context.Context, userID string) (*models.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) Upsert(_ context.Context, p *models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.profiles[p.UserID] = &cp
	return nil
}

func (r *fakeProfileRepo) UpdateLatentFactors(_ context.Context, userID string, factors []float32, clusterLabel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factorWrites[userID] = factors
	r.labels[userID] = clusterLabel
	return nil
}

type fakeJobRepo struct {
	jobs []models.Job
}

func (r *fakeJobRepo) GetByID(_ context.Context, jobID string) (*models.Job, error) {
	for i := range r.jobs {
		if r.jobs[i].ID == jobID {
			return &r.jobs[i], nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *fakeJobRepo) ListActive(_ context.Context, limit int) ([]models.Job, error) {
	out := make([]models.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if !j.Active {
			continue
		}
		out = append(out, j)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListByIDs(_ context.Context, ids []string) ([]models.Job, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Job
	for _, j := range r.jobs {
		if want[j.ID] {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu   sync.Mutex
	rows map[string]*models.MatchHistory

	upsertCalls int
	failNext    int // fail this many calls before succeeding
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{rows: make(map[string]*models.MatchHistory)}
}

func historyKey(userID, jobID string) string { return userID + "|" + jobID }

func (r *fakeHistoryRepo) takeFailure() bool {
	if r.failNext > 0 {
		r.failNext--
		return true
	}
	return false
}

func (r *fakeHistoryRepo) Upsert(_ context.Context, h *models.MatchHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if r.takeFailure() {
		return utils.E(utils.CodeUnavailable, "fake", "transient failure", nil)
	}
	key := historyKey(h.UserID, h.JobID)
	existing, ok := r.rows[key]
	if !ok {
		cp := *h
		cp.CreatedAt = time.Now().UTC()
		cp.UpdatedAt = cp.CreatedAt
		r.rows[key] = &cp
		return nil
	}
	// Score fields overwrite, interaction flags survive.
	existing.Score = h.Score
	existing.Algorithm = h.Algorithm
	existing.Rank = h.Rank
	existing.Breakdown = h.Breakdown
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeHistoryRepo) ApplyInteraction(_ context.Context, userID, jobID string, t models.InteractionType, at time.Time, feedback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takeFailure() {
		return utils.E(utils.CodeUnavailable, "fake", "transient failure", nil)
	}
	key := historyKey(userID, jobID)
	h, ok := r.rows[key]
	if !ok {
		h = &models.MatchHistory{UserID: userID, JobID: jobID, CreatedAt: at}
		r.rows[key] = h
	}
	h.MarkInteraction(t, at)
	if feedback != "" {
		h.Feedback = feedback
	}
	h.UpdatedAt = at
	return nil
}

func (r *fakeHistoryRepo) ListByUser(_ context.Context, userID string) ([]models.MatchHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MatchHistory
	for _, h := range r.rows {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) ListByUserSince(_ context.Context, userID string, since time.Time) ([]models.MatchHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MatchHistory
	for _, h := range r.rows {
		if h.UserID == userID && !h.UpdatedAt.Before(since) {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) get(userID, jobID string) *models.MatchHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.rows[historyKey(userID, jobID)]
	if !ok {
		return nil
	}
	cp := *h
	return &cp
}

func (r *fakeHistoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeInteractionRepo struct {
	mu     sync.Mutex
	events []models.InteractionEvent
}

func (r *fakeInteractionRepo) Append(_ context.Context, ev *models.InteractionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return nil
}

func (r *fakeInteractionRepo) ListByUserSince(_ context.Context, userID string, since time.Time, limit int64) ([]models.InteractionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.InteractionEvent
	for _, ev := range r.events {
		if ev.UserID == userID && !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeInteractionRepo) ListSince(_ context.Context, since time.Time, limit int64) ([]models.InteractionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.InteractionEvent
	for _, ev := range r.events {
		if !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

type fakeCache struct {
	mu             sync.Mutex
	entries        map[string][]byte
	delPrefixCalls []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = b
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *fakeCache) DelPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delPrefixCalls = append(c.delPrefixCalls, prefix)
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}
