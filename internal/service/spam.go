package service

import (
	"context"
	"strings"

	"formsync/internal/akismet"
	"formsync/internal/model"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// SpamClassifier is the external spam check
type SpamClassifier interface {
	CheckSpam(ctx context.Context, comment akismet.Comment) (bool, error)
	VerifyKey(ctx context.Context) (bool, error)
}

// ClassifierFactory builds a classifier bound to an app's credentials
type ClassifierFactory func(app *model.App) SpamClassifier

// RequestMeta describes the client that sent a submission
type RequestMeta struct {
	IP        string
	UserAgent string
}

type SpamFilter struct {
	newClassifier ClassifierFactory
	log           *zap.Logger
}

func NewSpamFilter(newClassifier ClassifierFactory, log *zap.Logger) *SpamFilter {
	return &SpamFilter{newClassifier: newClassifier, log: log}
}

// BuildSpamComment selects the template's spam fields present in data.
func BuildSpamComment(tmpl *model.Template, data map[string]interface{}, meta RequestMeta) akismet.Comment {
	comment := akismet.Comment{
		UserIP:    meta.IP,
		UserAgent: meta.UserAgent,
	}

	var content []string
	for _, f := range tmpl.SpamFilter.Content {
		if v, ok := data[f]; ok {
			content = append(content, cast.ToString(v))
		}
	}
	comment.Content = strings.Join(content, " ")

	for _, f := range tmpl.SpamFilter.Other {
		if v, ok := data[f]; ok {
			if comment.Other == nil {
				comment.Other = make(map[string]string)
			}
			comment.Other[f] = cast.ToString(v)
		}
	}
	return comment
}

// Apply classifies the submission when the spam check is enabled and returns
// the submission with the verdict folded in. Classifier failures leave the
// submission unchanged.
func (f *SpamFilter) Apply(ctx context.Context, res *Resolution, tmpl *model.Template, sub model.Submission, meta RequestMeta) model.Submission {
	if !res.SpamEnabled || f.newClassifier == nil {
		return sub
	}
	if res.App.SpamFilterAkismet.Key == "" {
		f.log.Warn("Spam check enabled without a classifier key", zap.String("app_key", sub.AppKey))
		return sub
	}

	classifier := f.newClassifier(res.App)
	spam, err := classifier.CheckSpam(ctx, BuildSpamComment(tmpl, sub.TemplateData, meta))
	if err != nil {
		f.log.Error("Spam check failed", zap.String("app_key", sub.AppKey), zap.Error(err))
		valid, verr := classifier.VerifyKey(ctx)
		if verr != nil {
			f.log.Error("Spam classifier key verification failed", zap.String("app_key", sub.AppKey), zap.Error(verr))
		} else if !valid {
			f.log.Error("Spam classifier key is invalid", zap.String("app_key", sub.AppKey))
		}
		return sub
	}

	if spam {
		f.log.Info("Submission classified as spam", zap.String("app_key", sub.AppKey), zap.String("template", sub.TemplateName))
	}
	return sub.WithSpamVerdict(spam)
}
