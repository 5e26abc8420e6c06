package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Worker processes uploaded jobs with a shared Ingestor.
type Worker struct {
	ingestor *Ingestor
	log      *slog.Logger
}

func NewWorker(ingestor *Ingestor, log *slog.Logger) *Worker {
	return &Worker{ingestor: ingestor, log: log}
}

// Process runs the job's document through the pipeline, mirroring each stage
// on the job, and stores the outcome. A panic fails only this job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	log.Info("processing job")

	defer func() {
		if p := recover(); p != nil {
			log.Error("panic while processing job", "panic", p, "stack", string(debug.Stack()))
			documentsTotal.WithLabelValues(string(StatusFailed)).Inc()
			job.SetResult(Result{Document: job.Filename, Err: fmt.Errorf("panic: %v", p)})
		}
	}()

	res := w.ingestor.Run(ctx, job.Document(), func(s JobStatus) {
		if !s.Terminal() {
			job.SetStatus(s, string(s))
		}
	})
	for _, warning := range res.Warnings {
		job.AddError(warning)
	}
	job.SetResult(res)

	if res.OK() {
		log.Info("job completed", "records", len(res.Records), "inserted", res.Inserted, "warnings", len(res.Warnings))
	} else {
		log.Error("job failed", "error", res.Err)
	}
}
