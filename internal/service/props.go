package service

import (
	"strings"

	"formsync/internal/model"

	"github.com/spf13/cast"
)

const (
	fieldAppKey      = "appKey"
	fieldTemplate    = "templateName"
	fieldURLRedirect = "urlRedirect"
	fieldEmail       = "email"
)

// PropsInput holds everything the props engine combines into a submission
type PropsInput struct {
	AppKey   string
	App      *model.App
	Template *model.Template
	Raw      map[string]interface{}
	Defaults map[string]interface{}
	Required map[string]struct{}
}

// Props is the outcome of merging, whitelisting and reshaping
type Props struct {
	Submission model.Submission
	Redirect   string
}

// MergeProps merges layers into a new map; later layers win on key collisions.
func MergeProps(layers ...map[string]interface{}) map[string]interface{} {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	out := make(map[string]interface{}, size)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// AllowedFields is the union of required, template and app info field names.
func AllowedFields(required map[string]struct{}, tmpl *model.Template, info model.AppInfo) map[string]struct{} {
	allowed := make(map[string]struct{}, len(required))
	for name := range required {
		allowed[name] = struct{}{}
	}
	if tmpl != nil {
		for _, f := range tmpl.Fields {
			allowed[f.ID] = struct{}{}
		}
	}
	for name := range info.Fields() {
		allowed[name] = struct{}{}
	}
	return allowed
}

// Whitelist returns the entries of record whose key is allowed.
func Whitelist(record map[string]interface{}, allowed map[string]struct{}) map[string]interface{} {
	out := make(map[string]interface{}, len(allowed))
	for k, v := range record {
		if _, ok := allowed[k]; ok {
			out[k] = v
		}
	}
	return out
}

// candidate merges {appKey} ⊕ defaults ⊕ raw ⊕ app info.
func candidate(in PropsInput) map[string]interface{} {
	return MergeProps(
		map[string]interface{}{fieldAppKey: in.AppKey},
		in.Defaults,
		in.Raw,
		in.App.AppInfo.Fields(),
	)
}

// MergeAndWhitelist merges the submission layers and drops every key outside
// the whitelist.
func MergeAndWhitelist(in PropsInput) map[string]interface{} {
	return Whitelist(candidate(in), AllowedFields(in.Required, in.Template, in.App.AppInfo))
}

// BuildProps reshapes the whitelisted record into a submission. The redirect
// target is taken from the unfiltered input and never persisted.
func BuildProps(in PropsInput) Props {
	record := MergeAndWhitelist(in)

	data := make(map[string]interface{})
	for k, v := range record {
		v = trimScalar(v)
		if in.Template.HasField(k) {
			data[k] = v
		}
	}

	sub := model.Submission{
		AppKey:       in.AppKey,
		From:         in.App.AppInfo.AppFrom,
		Recipient:    in.AppKey,
		ReplyTo:      cast.ToString(data[fieldEmail]),
		TemplateName: in.Template.ID,
		TemplateData: data,
	}

	return Props{
		Submission: sub,
		Redirect:   redirectTarget(MergeProps(in.Defaults, in.Raw)[fieldURLRedirect]),
	}
}

// trimScalar renders scalars as trimmed strings; objects and arrays pass through.
func trimScalar(v interface{}) interface{} {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return v
	case nil:
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return v
	}
	return strings.TrimSpace(s)
}

func redirectTarget(v interface{}) string {
	s := strings.TrimSpace(cast.ToString(v))
	if s == "" || strings.EqualFold(s, "false") {
		return ""
	}
	return s
}
