package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Condition is a global tri-state switch layered over a per-app boolean flag.
type Condition int

const (
	ConditionGlobalOff  Condition = 0
	ConditionGlobalOn   Condition = 1
	ConditionDeferToApp Condition = 2
)

// Resolve returns the effective value of a condition for an app flag.
// Unknown values resolve to off.
func (c Condition) Resolve(appFlag bool) bool {
	switch c {
	case ConditionGlobalOn:
		return true
	case ConditionDeferToApp:
		return appFlag
	default:
		return false
	}
}

// Messages is the user-facing text returned to the submitter
type Messages struct {
	Success string `json:"success"`
	Error   string `json:"error"`
}

// AppInfo is merged into every submission of the app
type AppInfo struct {
	AppName     string `json:"appName"`
	AppURL      string `json:"appUrl"`
	AppTimeZone string `json:"appTimeZone"`
	AppFrom     string `json:"appFrom"`
}

// Fields returns the info block keyed by its document field names.
func (i AppInfo) Fields() map[string]interface{} {
	return map[string]interface{}{
		"appName":     i.AppName,
		"appUrl":      i.AppURL,
		"appTimeZone": i.AppTimeZone,
		"appFrom":     i.AppFrom,
	}
}

// AppConditions are the per-app flags read when the global condition defers to the app
type AppConditions struct {
	MessageGlobal     bool `json:"messageGlobal"`
	CORSBypass        bool `json:"corsBypass"`
	SubmitForm        bool `json:"submitForm"`
	SpamFilterAkismet bool `json:"spamFilterAkismet"`
}

// GlobalConditions mirror AppConditions as tri-state switches
type GlobalConditions struct {
	MessageGlobal     Condition `json:"messageGlobal"`
	CORSBypass        Condition `json:"corsBypass"`
	SubmitForm        Condition `json:"submitForm"`
	SpamFilterAkismet Condition `json:"spamFilterAkismet"`
}

type SpamCredentials struct {
	Key string `json:"key"`
}

// Spreadsheet identifies the app's spreadsheet and the sheet id of every template tab
type Spreadsheet struct {
	ID      string           `json:"id"`
	SheetID map[string]int64 `json:"sheetId,omitempty"`
}

// App is a tenant configuration document
type App struct {
	ID                string          `json:"-"`
	AppInfo           AppInfo         `json:"appInfo"`
	Condition         AppConditions   `json:"condition"`
	SpamFilterAkismet SpamCredentials `json:"spamFilterAkismet"`
	Spreadsheet       Spreadsheet     `json:"spreadsheet"`
	Message           Messages        `json:"message"`
}

// Global is the global configuration document
type Global struct {
	Condition GlobalConditions `json:"condition"`
	Message   Messages         `json:"message"`
}

// FieldDef is a form field definition. Position and SheetHeader are only
// meaningful inside a template.
type FieldDef struct {
	ID          string      `json:"-"`
	Required    bool        `json:"required,omitempty"`
	Default     bool        `json:"default,omitempty"`
	Value       interface{} `json:"value,omitempty"`
	Position    interface{} `json:"position,omitempty"`
	SheetHeader string      `json:"sheetHeader,omitempty"`
}

// SpamFields selects the template fields sent to the spam classifier
type SpamFields struct {
	Content []string `json:"content,omitempty"`
	Other   []string `json:"other,omitempty"`
}

// Template is a named submission shape. Fields are kept in position order.
type Template struct {
	ID         string
	Fields     []FieldDef
	SpamFilter SpamFields
}

type templateDoc struct {
	Fields            map[string]FieldDef `json:"fields"`
	SpamFilterAkismet SpamFields          `json:"spamFilterAkismet"`
}

// FieldIDs returns the template field ids in position order.
func (t Template) FieldIDs() []string {
	ids := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		ids[i] = f.ID
	}
	return ids
}

// HasField reports whether id is one of the template fields.
func (t Template) HasField(id string) bool {
	for _, f := range t.Fields {
		if f.ID == id {
			return true
		}
	}
	return false
}

// SpamRecipient replaces the recipient of a submission classified as spam so
// downstream notification skips it while the record is kept.
const SpamRecipient = "SPAM_SUSPECTED_DO_NOT_EMAIL"

// Submission is the persisted, normalized form submission. Values are
// treated as immutable; the With* methods return modified copies.
type Submission struct {
	ID           string
	AppKey       string
	CreatedAt    time.Time
	From         string
	Spam         string
	Recipient    string
	ReplyTo      string
	TemplateName string
	TemplateData map[string]interface{}
}

// WithSpamVerdict folds a classifier verdict into a copy of the submission.
func (s Submission) WithSpamVerdict(spam bool) Submission {
	out := s
	out.TemplateData = maps.Clone(s.TemplateData)
	if spam {
		out.Spam = "true"
		out.Recipient = SpamRecipient
	} else {
		out.Spam = "false"
	}
	return out
}

// WithID returns a copy of the submission carrying its document id.
func (s Submission) WithID(id string) Submission {
	out := s
	out.TemplateData = maps.Clone(s.TemplateData)
	out.ID = id
	return out
}

// Decode converts a raw document into a typed value.
func Decode(doc map[string]interface{}, v interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// DecodeApp decodes a tenant document.
func DecodeApp(id string, doc map[string]interface{}) (*App, error) {
	var app App
	if err := Decode(doc, &app); err != nil {
		return nil, err
	}
	app.ID = id
	return &app, nil
}

// DecodeTemplate decodes a template document and orders its fields by position.
func DecodeTemplate(id string, doc map[string]interface{}) (*Template, error) {
	var td templateDoc
	if err := Decode(doc, &td); err != nil {
		return nil, err
	}

	fields := make([]FieldDef, 0, len(td.Fields))
	for fid, f := range td.Fields {
		f.ID = fid
		fields = append(fields, f)
	}
	// Map iteration is random; seed a deterministic order before the stable position sort.
	SortFieldsByID(fields)
	SortFieldsByPosition(fields)

	return &Template{
		ID:         id,
		Fields:     fields,
		SpamFilter: td.SpamFilterAkismet,
	}, nil
}

// DecodeSubmission rebuilds a Submission from its stored document.
func DecodeSubmission(id string, doc map[string]interface{}) (*Submission, error) {
	var raw struct {
		AppKey    string      `json:"appKey"`
		CreatedAt interface{} `json:"createdAt"`
		From      string      `json:"from"`
		Spam      string      `json:"spam"`
		ToUids    []string    `json:"toUids"`
		ReplyTo   string      `json:"replyTo"`
		Template  struct {
			Name string                 `json:"name"`
			Data map[string]interface{} `json:"data"`
		} `json:"template"`
	}
	if err := Decode(doc, &raw); err != nil {
		return nil, err
	}

	createdAt, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt: %w", err)
	}

	sub := &Submission{
		ID:           id,
		AppKey:       raw.AppKey,
		CreatedAt:    createdAt,
		From:         raw.From,
		Spam:         raw.Spam,
		ReplyTo:      raw.ReplyTo,
		TemplateName: raw.Template.Name,
		TemplateData: raw.Template.Data,
	}
	if len(raw.ToUids) > 0 {
		sub.Recipient = raw.ToUids[0]
	}
	if sub.TemplateData == nil {
		sub.TemplateData = map[string]interface{}{}
	}
	return sub, nil
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case nil:
		return time.Time{}, fmt.Errorf("missing timestamp")
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}
