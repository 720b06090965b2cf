// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandler completes, fails or throws on the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerOptions are the per-task-type polling settings.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
	Name          string
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewWorker opens a job worker for taskType. The handler's panics are recovered
// and logged so one bad job cannot stop the poller; the job then times out and
// is redelivered by the broker.
func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler JobHandler, logger *zap.Logger) *CamundaWorker {
	builder := client.NewJobWorker().
		JobType(taskType).
		Handler(func(jc worker.JobClient, job entities.Job) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Handler panicked",
						zap.Any("panic", r),
						zap.String("taskType", taskType),
						zap.Int64("jobKey", job.Key))
				}
			}()
			handler.Handle(jc, job)
		}).
		MaxJobsActive(opts.MaxJobsActive)

	if opts.Timeout > 0 {
		builder = builder.Timeout(opts.Timeout)
	}
	if opts.Name != "" {
		builder = builder.Name(opts.Name)
	}

	w := &CamundaWorker{
		worker:   builder.Open(),
		logger:   logger,
		taskType: taskType,
	}
	logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", opts.MaxJobsActive),
		zap.Duration("timeout", opts.Timeout))
	return w
}

func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
	w.worker.AwaitClose()
}
