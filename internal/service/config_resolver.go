package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"formsync/internal/docstore"
	"formsync/internal/model"
)

// Document collections
const (
	CollectionApp          = "app"
	CollectionGlobal       = "global"
	CollectionFormField    = "formField"
	CollectionFormTemplate = "formTemplate"
	CollectionSubmitForm   = "submitForm"

	GlobalAppDocument = "app"
)

// AnyOrigin is the allowed origin when CORS is bypassed
const AnyOrigin = "*"

// Resolution is the effective configuration of one submission
type Resolution struct {
	App           *model.App
	Global        *model.Global
	Messages      model.Messages
	SubmitEnabled bool
	SpamEnabled   bool
	AllowOrigin   string
}

type ConfigResolver struct {
	store docstore.Store
}

func NewConfigResolver(store docstore.Store) *ConfigResolver {
	return &ConfigResolver{store: store}
}

// LoadApp fetches and decodes a tenant document.
func (r *ConfigResolver) LoadApp(ctx context.Context, appKey string) (*model.App, error) {
	doc, err := r.store.Get(ctx, CollectionApp, appKey)
	if err != nil {
		return nil, err
	}
	return model.DecodeApp(appKey, doc)
}

// Resolve loads the app and global configuration and applies the global
// conditions. An unknown app key or a disallowed origin returns ErrRejected.
func (r *ConfigResolver) Resolve(ctx context.Context, appKey, origin string) (*Resolution, error) {
	if appKey == "" {
		return nil, ErrRejected
	}

	app, err := r.LoadApp(ctx, appKey)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrRejected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load app: %w", err)
	}

	doc, err := r.store.Get(ctx, CollectionGlobal, GlobalAppDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}
	var global model.Global
	if err := model.Decode(doc, &global); err != nil {
		return nil, err
	}

	res := &Resolution{
		App:           app,
		Global:        &global,
		SubmitEnabled: global.Condition.SubmitForm.Resolve(app.Condition.SubmitForm),
		SpamEnabled:   global.Condition.SpamFilterAkismet.Resolve(app.Condition.SpamFilterAkismet),
	}

	if global.Condition.MessageGlobal.Resolve(app.Condition.MessageGlobal) {
		res.Messages = global.Message
	} else {
		res.Messages = app.Message
	}

	if global.Condition.CORSBypass.Resolve(app.Condition.CORSBypass) {
		res.AllowOrigin = AnyOrigin
	} else {
		res.AllowOrigin = app.AppInfo.AppURL
		if !sameOrigin(origin, app.AppInfo.AppURL) {
			return nil, ErrRejected
		}
	}

	return res, nil
}

// sameOrigin compares scheme and host of two origins, ignoring case and any path.
func sameOrigin(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ua, errA := url.Parse(strings.TrimSpace(a))
	ub, errB := url.Parse(strings.TrimSpace(b))
	if errA != nil || errB != nil || ua.Host == "" || ub.Host == "" {
		return strings.EqualFold(strings.TrimSuffix(a, "/"), strings.TrimSuffix(b, "/"))
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Host, ub.Host)
}
