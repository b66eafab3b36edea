package workers

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/joblens/joblens/internal/services"
)

// TrainingWorker periodically retrains the collaborative-filtering model in
// the background. It is the single snapshot writer; scoring keeps reading
// the previously published snapshot while a retrain runs.
type TrainingWorker struct {
	Trainer services.TrainingService
	Logger  *logrus.Logger

	Spec       string        // cron spec, e.g. "@hourly"
	RunTimeout time.Duration // per-retrain deadline

	cron *cron.Cron
}

func (w *TrainingWorker) Start(ctx context.Context) error {
	if w.Trainer == nil {
		return errors.New("TrainingWorker missing dependency: Trainer must be set")
	}
	if w.Logger == nil {
		w.Logger = logrus.New()
	}
	if w.Spec == "" {
		w.Spec = os.Getenv("TRAIN_CRON")
	}
	if w.Spec == "" {
		w.Spec = "@hourly"
	}
	if w.RunTimeout <= 0 {
		w.RunTimeout = 5 * time.Minute
	}

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.Spec, func() { w.runOnce(ctx) }); err != nil {
		return err
	}
	w.cron.Start()
	w.Logger.WithFields(logrus.Fields{
		"component": "training_worker",
		"spec":      w.Spec,
	}).Info("training worker started")

	// Warm the model without waiting for the first tick.
	go w.runOnce(ctx)

	go func() {
		<-ctx.Done()
		w.cron.Stop()
		w.Logger.WithField("component", "training_worker").Info("training worker stopped")
	}()
	return nil
}

func (w *TrainingWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, w.RunTimeout)
	defer cancel()

	if err := w.Trainer.Retrain(runCtx); err != nil {
		// previous snapshot stays live
		w.Logger.WithField("component", "training_worker").WithError(err).Error("retrain failed")
	}
}
