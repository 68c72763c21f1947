package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task types
const (
	TypeSheetSync = "submission:sheetsync"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// SheetSyncer mirrors one stored submission into its spreadsheet
type SheetSyncer interface {
	Sync(ctx context.Context, submissionID string) error
	// Permanent reports errors that redelivery cannot fix.
	Permanent(err error) bool
}

// Options controls how sheet sync tasks are enqueued
type Options struct {
	MaxRetry int
	Timeout  time.Duration
}

type JobServer struct {
	server *asynq.Server
	client *asynq.Client
	syncer SheetSyncer
	log    *zap.Logger
}

func NewJobServer(redisAddr string, concurrency int, syncer SheetSyncer, log *zap.Logger) (*JobServer, *asynq.Client) {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueDefault: 3,
				QueueLow:     1,
			},
			Logger: newAsynqLogger(log),
		},
	)

	client := asynq.NewClient(redisOpt)

	return &JobServer{
		server: server,
		client: client,
		syncer: syncer,
		log:    log,
	}, client
}

// Mux returns the task routes served by the job server.
func (js *JobServer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSheetSync, js.handleSheetSync)
	return mux
}

func (js *JobServer) Start() error {
	return js.server.Start(js.Mux())
}

func (js *JobServer) Stop() {
	js.server.Shutdown()
	js.client.Close()
}

// Job handlers

func (js *JobServer) handleSheetSync(ctx context.Context, t *asynq.Task) error {
	submissionID := string(t.Payload())
	if submissionID == "" {
		return fmt.Errorf("empty submission id: %w", asynq.SkipRetry)
	}

	if err := js.syncer.Sync(ctx, submissionID); err != nil {
		js.log.Error("Sheet sync failed", zap.String("submission_id", submissionID), zap.Error(err))
		if js.syncer.Permanent(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	js.log.Info("Sheet sync completed", zap.String("submission_id", submissionID))
	return nil
}

// Schedule jobs

// EnqueueSheetSync triggers the first sync of a new submission. The task id
// is derived from the submission id so repeated triggers collapse into one.
func EnqueueSheetSync(client *asynq.Client, submissionID string, opts Options) error {
	task := asynq.NewTask(TypeSheetSync, []byte(submissionID))
	_, err := client.Enqueue(task, append(taskOptions(opts),
		asynq.TaskID("sheetsync:"+submissionID),
		asynq.Queue(QueueDefault),
	)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueSheetResync triggers another sync of a stored submission.
func EnqueueSheetResync(client *asynq.Client, submissionID string, opts Options) error {
	task := asynq.NewTask(TypeSheetSync, []byte(submissionID))
	_, err := client.Enqueue(task, append(taskOptions(opts), asynq.Queue(QueueLow))...)
	return err
}

func taskOptions(opts Options) []asynq.Option {
	var out []asynq.Option
	if opts.MaxRetry > 0 {
		out = append(out, asynq.MaxRetry(opts.MaxRetry))
	}
	if opts.Timeout > 0 {
		out = append(out, asynq.Timeout(opts.Timeout))
	}
	return out
}

// asynqLogger routes asynq's internal logging through zap
type asynqLogger struct {
	log *zap.SugaredLogger
}

func newAsynqLogger(log *zap.Logger) *asynqLogger {
	return &asynqLogger{log: log.Named("asynq").Sugar()}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Fatal(args...) }
