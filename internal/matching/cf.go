package matching

import (
	"math/rand"
	"sync/atomic"
)

// ModelState tracks the train lifecycle. Only a fitted model answers real
// predictions; every other state falls back to NeutralPrediction.
type ModelState int32

const (
	StateUntrained ModelState = iota
	StateTraining
	StateFitted
)

func (s ModelState) String() string {
	switch s {
	case StateTraining:
		return "training"
	case StateFitted:
		return "fitted"
	default:
		return "untrained"
	}
}

// Triple is one implicit-feedback observation: accumulated engagement weight
// for a (user, job) pair.
type Triple struct {
	UserID string
	JobID  string
	Weight float64
}

// Snapshot is an immutable fitted model. Readers hold one snapshot for an
// entire scoring batch; retraining publishes a fresh one, never mutates.
type Snapshot struct {
	userFactors map[string][]float64
	itemFactors map[string][]float64
	version     int64
}

func (s *Snapshot) Version() int64 { return s.version }

// UserFactors exposes a copy of one user's latent vector, for persistence.
func (s *Snapshot) UserFactors(userID string) ([]float64, bool) {
	f, ok := s.userFactors[userID]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(f))
	copy(out, f)
	return out, true
}

// UserIDs lists every user the snapshot has factors for, in stable order of
// insertion during training.
func (s *Snapshot) UserIDs() []string {
	out := make([]string, 0, len(s.userFactors))
	for id := range s.userFactors {
		out = append(out, id)
	}
	return out
}

// Predict returns the learned affinity in [0,1]; unknown pairs get
// NeutralPrediction. Safe on a nil snapshot.
func (s *Snapshot) Predict(userID, jobID string) float64 {
	if s == nil {
		return NeutralPrediction
	}
	u, ok := s.userFactors[userID]
	if !ok {
		return NeutralPrediction
	}
	v, ok := s.itemFactors[jobID]
	if !ok {
		return NeutralPrediction
	}
	dot := 0.0
	for i := range u {
		dot += u[i] * v[i]
	}
	return clamp01(dot)
}

// BuildTriples folds analyzed records into per-(user, job) observations,
// summing engagement. Hidden-dominated pairs fold to non-positive weight and
// are dropped by training. Output order follows first occurrence, keeping
// training deterministic for a given record sequence.
func BuildTriples(records []AnalyzedRecord) []Triple {
	idx := make(map[[2]string]int)
	var out []Triple
	for _, r := range records {
		if r.JobID == "" {
			continue // searches carry no item
		}
		key := [2]string{r.UserID, r.JobID}
		if i, ok := idx[key]; ok {
			out[i].Weight += r.Engagement
			continue
		}
		idx[key] = len(out)
		out = append(out, Triple{UserID: r.UserID, JobID: r.JobID, Weight: r.Engagement})
	}
	filtered := out[:0]
	for _, t := range out {
		if t.Weight > 0 {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// Model owns the state machine and the currently published snapshot.
type Model struct {
	cfg     Config
	state   atomic.Int32
	current atomic.Pointer[Snapshot]
	counter atomic.Int64
}

func NewModel(cfg Config) *Model {
	return &Model{cfg: cfg}
}

func (m *Model) State() ModelState { return ModelState(m.state.Load()) }

// Snapshot returns the last published snapshot, nil before the first fit.
func (m *Model) Snapshot() *Snapshot { return m.current.Load() }

// Predict answers from the current snapshot; untrained or training models
// answer NeutralPrediction instead of failing.
func (m *Model) Predict(userID, jobID string) float64 {
	if m.State() != StateFitted {
		return NeutralPrediction
	}
	return m.current.Load().Predict(userID, jobID)
}

// Train fits latent factors on the given observations and publishes the new
// snapshot atomically. Training on empty input is a no-op that leaves the
// previous state untouched: a fitted model is never regressed.
func (m *Model) Train(triples []Triple) *Snapshot {
	if len(triples) == 0 {
		return m.current.Load()
	}
	// Only the first fit passes through TRAINING; refits stay FITTED so
	// readers keep using the previous snapshot.
	m.state.CompareAndSwap(int32(StateUntrained), int32(StateTraining))

	snap := m.fit(triples)
	if snap == nil {
		// nothing usable in the batch (all weights non-positive)
		m.state.CompareAndSwap(int32(StateTraining), int32(StateUntrained))
		return m.current.Load()
	}
	m.current.Store(snap)
	m.state.Store(int32(StateFitted))
	return snap
}

// fit runs alternating least squares for implicit feedback: confidence
// c = 1 + alpha*w toward preference 1 on observed pairs, 0 elsewhere.
func (m *Model) fit(triples []Triple) *Snapshot {
	f := m.cfg.Factors
	lambda := m.cfg.Regularization
	alpha := m.cfg.Alpha

	// Index users and items in first-occurrence order for determinism.
	userIdx := make(map[string]int)
	itemIdx := make(map[string]int)
	var userIDs, itemIDs []string
	var byUser, byItem [][]obs

	for _, t := range triples {
		if t.Weight <= 0 {
			continue
		}
		ui, ok := userIdx[t.UserID]
		if !ok {
			ui = len(userIDs)
			userIdx[t.UserID] = ui
			userIDs = append(userIDs, t.UserID)
			byUser = append(byUser, nil)
		}
		ii, ok := itemIdx[t.JobID]
		if !ok {
			ii = len(itemIDs)
			itemIdx[t.JobID] = ii
			itemIDs = append(itemIDs, t.JobID)
			byItem = append(byItem, nil)
		}
		byUser[ui] = append(byUser[ui], obs{other: ii, weight: t.Weight})
		byItem[ii] = append(byItem[ii], obs{other: ui, weight: t.Weight})
	}
	if len(userIDs) == 0 || len(itemIDs) == 0 {
		return m.current.Load()
	}

	rng := rand.New(rand.NewSource(m.cfg.Seed))
	x := randomFactors(rng, len(userIDs), f) // users
	y := randomFactors(rng, len(itemIDs), f) // items

	for iter := 0; iter < m.cfg.Iterations; iter++ {
		solveSide(x, y, byUser, f, lambda, alpha)
		solveSide(y, x, byItem, f, lambda, alpha)
	}

	snap := &Snapshot{
		userFactors: make(map[string][]float64, len(userIDs)),
		itemFactors: make(map[string][]float64, len(itemIDs)),
		version:     m.counter.Add(1),
	}
	for i, id := range userIDs {
		snap.userFactors[id] = x[i]
	}
	for i, id := range itemIDs {
		snap.itemFactors[id] = y[i]
	}
	return snap
}

func randomFactors(rng *rand.Rand, n, f int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, f)
		for j := range row {
			row[j] = 0.1 * rng.Float64()
		}
		out[i] = row
	}
	return out
}

// obs is one observed pairing seen from either side of the matrix.
type obs struct {
	other  int
	weight float64
}

// solveSide recomputes the factors on one side of the matrix holding the
// other side fixed: A x = b with A = YtY + lambda*I + sum(alpha*w * y*yT),
// b = sum((1+alpha*w) * y).
func solveSide(target, fixed [][]float64, observed [][]obs, f int, lambda, alpha float64) {
	yty := gram(fixed, f)
	a := make([][]float64, f)
	b := make([]float64, f)
	for i := range a {
		a[i] = make([]float64, f)
	}

	for row := range target {
		for i := 0; i < f; i++ {
			for j := 0; j < f; j++ {
				a[i][j] = yty[i][j]
			}
			a[i][i] += lambda
			b[i] = 0
		}
		for _, o := range observed[row] {
			yv := fixed[o.other]
			conf := alpha * o.weight
			for i := 0; i < f; i++ {
				for j := 0; j < f; j++ {
					a[i][j] += conf * yv[i] * yv[j]
				}
				b[i] += (1 + conf) * yv[i]
			}
		}
		solveInPlace(a, b, target[row])
	}
}

func gram(m [][]float64, f int) [][]float64 {
	out := make([][]float64, f)
	for i := range out {
		out[i] = make([]float64, f)
	}
	for _, row := range m {
		for i := 0; i < f; i++ {
			for j := 0; j < f; j++ {
				out[i][j] += row[i] * row[j]
			}
		}
	}
	return out
}

// solveInPlace solves A·out = b by Gaussian elimination with partial
// pivoting. A and b are scratch and get clobbered.
func solveInPlace(a [][]float64, b []float64, out []float64) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(a[r][col]) > abs(a[pivot][col]) {
				pivot = r
			}
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		p := a[col][col]
		if abs(p) < 1e-12 {
			continue
		}
		for r := col + 1; r < n; r++ {
			factor := a[r][col] / p
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * out[c]
		}
		if abs(a[r][r]) < 1e-12 {
			out[r] = 0
			continue
		}
		out[r] = sum / a[r][r]
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
