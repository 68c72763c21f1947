package service

import (
	"formsync/internal/jobs"

	"github.com/hibiken/asynq"
)

// JobClient interface for scheduling background jobs
type JobClient interface {
	EnqueueSheetSync(submissionID string) error
	ResyncSheet(submissionID string) error
}

// AsynqJobClient implements JobClient using asynq
type AsynqJobClient struct {
	client *asynq.Client
	opts   jobs.Options
}

func NewAsynqJobClient(client *asynq.Client, opts jobs.Options) *AsynqJobClient {
	return &AsynqJobClient{client: client, opts: opts}
}

func (c *AsynqJobClient) EnqueueSheetSync(submissionID string) error {
	return jobs.EnqueueSheetSync(c.client, submissionID, c.opts)
}

func (c *AsynqJobClient) ResyncSheet(submissionID string) error {
	return jobs.EnqueueSheetResync(c.client, submissionID, c.opts)
}
