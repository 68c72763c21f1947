package service

import (
	"context"
	"errors"
	"strings"

	"formsync/internal/model"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

type EventBus interface {
	PublishApp(appKey string, event map[string]interface{}) error
}

// SubmitInput is one inbound submission after transport decoding
type SubmitInput struct {
	Raw    map[string]interface{}
	Origin string
	Meta   RequestMeta
}

type SubmitResult struct {
	SubmissionID string
	Redirect     string
	Messages     model.Messages
	AllowOrigin  string
}

// Pipeline normalizes and stores form submissions
type Pipeline struct {
	resolver    *ConfigResolver
	fields      *FieldRegistry
	spam        *SpamFilter
	submissions *SubmissionStore
	jobClient   JobClient
	bus         EventBus
	log         *zap.Logger
}

func NewPipeline(resolver *ConfigResolver, fields *FieldRegistry, spam *SpamFilter, submissions *SubmissionStore, bus EventBus, log *zap.Logger) *Pipeline {
	return &Pipeline{
		resolver:    resolver,
		fields:      fields,
		spam:        spam,
		submissions: submissions,
		bus:         bus,
		log:         log,
	}
}

// SetJobClient sets the job client that triggers sheet sync for new submissions
func (p *Pipeline) SetJobClient(client JobClient) {
	p.jobClient = client
}

// Submit runs one submission through resolution, normalization, spam check
// and storage. It returns ErrRejected for requests that get no response body
// and a *PipelineError for every other failure.
func (p *Pipeline) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	appKey := strings.TrimSpace(cast.ToString(in.Raw[fieldAppKey]))

	res, err := p.resolver.Resolve(ctx, appKey, in.Origin)
	if errors.Is(err, ErrRejected) {
		return nil, ErrRejected
	}
	if err != nil {
		p.log.Error("Failed to resolve app config", zap.String("app_key", appKey), zap.Error(err))
		return nil, &PipelineError{Err: err}
	}

	if !res.SubmitEnabled {
		return nil, &PipelineError{Messages: res.Messages, AllowOrigin: res.AllowOrigin, Err: ErrSubmitDisabled}
	}

	result, err := p.process(ctx, appKey, res, in)
	if err != nil {
		p.log.Error("Submission failed", zap.String("app_key", appKey), zap.Error(err))
		return nil, &PipelineError{Messages: res.Messages, AllowOrigin: res.AllowOrigin, Err: err}
	}
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, appKey string, res *Resolution, in SubmitInput) (*SubmitResult, error) {
	required, err := p.fields.RequiredFieldNames(ctx)
	if err != nil {
		return nil, err
	}
	defaults, err := p.fields.DefaultFieldValues(ctx)
	if err != nil {
		return nil, err
	}
	tmpl, err := p.fields.TemplateFor(ctx, strings.TrimSpace(cast.ToString(in.Raw[fieldTemplate])))
	if err != nil {
		return nil, err
	}

	props := BuildProps(PropsInput{
		AppKey:   appKey,
		App:      res.App,
		Template: tmpl,
		Raw:      in.Raw,
		Defaults: defaults,
		Required: required,
	})

	sub := p.spam.Apply(ctx, res, tmpl, props.Submission, in.Meta)

	id, err := p.submissions.Create(ctx, sub)
	if err != nil {
		return nil, err
	}
	sub = sub.WithID(id)

	p.log.Info("Submission stored",
		zap.String("app_key", appKey),
		zap.String("template", tmpl.ID),
		zap.String("submission_id", id),
	)

	if p.jobClient != nil {
		if err := p.jobClient.EnqueueSheetSync(id); err != nil {
			p.log.Error("Failed to enqueue sheet sync", zap.String("submission_id", id), zap.Error(err))
		}
	}

	if p.bus != nil {
		event := map[string]interface{}{
			"type":         "submission.created",
			"submissionId": id,
			"template":     sub.TemplateName,
		}
		if sub.Spam != "" {
			event["spam"] = sub.Spam
		}
		if err := p.bus.PublishApp(appKey, event); err != nil {
			p.log.Warn("Failed to publish submission event", zap.String("submission_id", id), zap.Error(err))
		}
	}

	return &SubmitResult{
		SubmissionID: id,
		Redirect:     props.Redirect,
		Messages:     res.Messages,
		AllowOrigin:  res.AllowOrigin,
	}, nil
}

// Resync re-triggers sheet sync for a stored submission.
func (p *Pipeline) Resync(ctx context.Context, submissionID string) error {
	if _, err := p.submissions.Get(ctx, submissionID); err != nil {
		return err
	}
	if p.jobClient == nil {
		return errors.New("job client not configured")
	}
	return p.jobClient.ResyncSheet(submissionID)
}
