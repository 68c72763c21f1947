package service

import (
	"context"
	"testing"

	"formsync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPropsInput(t *testing.T, raw map[string]interface{}) PropsInput {
	t.Helper()
	store := newTestStore(t)
	ctx := context.Background()
	reg := NewFieldRegistry(store)

	app, err := NewConfigResolver(store).LoadApp(ctx, testAppKey)
	require.NoError(t, err)
	tmpl, err := reg.TemplateFor(ctx, testTemplate)
	require.NoError(t, err)
	required, err := reg.RequiredFieldNames(ctx)
	require.NoError(t, err)
	defaults, err := reg.DefaultFieldValues(ctx)
	require.NoError(t, err)

	return PropsInput{
		AppKey:   testAppKey,
		App:      app,
		Template: tmpl,
		Raw:      raw,
		Defaults: defaults,
		Required: required,
	}
}

func TestMergeProps_LaterLayerWins(t *testing.T) {
	a := map[string]interface{}{"x": 1, "y": 1}
	b := map[string]interface{}{"y": 2}
	c := map[string]interface{}{"z": 3}

	got := MergeProps(a, b, nil, c)
	assert.Equal(t, map[string]interface{}{"x": 1, "y": 2, "z": 3}, got)
	assert.Equal(t, 1, a["y"])
}

func TestMergeAndWhitelist_DropsUnknownKeys(t *testing.T) {
	in := testPropsInput(t, map[string]interface{}{
		"appKey":       testAppKey,
		"templateName": testTemplate,
		"name":         "Jax",
		"$where":       "1 == 1",
		"a.b":          "x",
		"appName":      "Spoofed",
	})

	got := MergeAndWhitelist(in)

	assert.NotContains(t, got, "$where")
	assert.NotContains(t, got, "a.b")
	assert.NotContains(t, got, "urlRedirect")
	assert.Equal(t, "Jax", got["name"])
	assert.Equal(t, testTemplate, got["templateName"])
	// app info is merged last and cannot be overridden by the submitter
	assert.Equal(t, "Acme", got["appName"])
	assert.Equal(t, testOrigin, got["appUrl"])
}

func TestMergeAndWhitelist_Idempotent(t *testing.T) {
	in := testPropsInput(t, map[string]interface{}{
		"appKey":       testAppKey,
		"templateName": testTemplate,
		"name":         "Jax",
		"email":        "j@x.com",
		"junk":         true,
	})

	once := MergeAndWhitelist(in)
	in.Raw = once
	twice := MergeAndWhitelist(in)

	assert.Equal(t, once, twice)
}

func TestBuildProps(t *testing.T) {
	in := testPropsInput(t, map[string]interface{}{
		"appKey":       testAppKey,
		"templateName": testTemplate,
		"name":         "  Jax ",
		"email":        " j@x.com\n",
		"message":      42,
		"urlRedirect":  "https://acme.example/thanks",
		"phone":        "555",
	})

	props := BuildProps(in)
	sub := props.Submission

	assert.Equal(t, "https://acme.example/thanks", props.Redirect)
	assert.Equal(t, testAppKey, sub.AppKey)
	assert.Equal(t, testAppKey, sub.Recipient)
	assert.Equal(t, "forms@acme.example", sub.From)
	assert.Equal(t, "j@x.com", sub.ReplyTo)
	assert.Equal(t, testTemplate, sub.TemplateName)
	assert.Empty(t, sub.Spam)
	assert.Equal(t, map[string]interface{}{
		"name":    "Jax",
		"email":   "j@x.com",
		"message": "42",
	}, sub.TemplateData)
}

func TestBuildProps_Redirect(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want string
	}{
		{"default false", nil, ""},
		{"explicit false", "false", ""},
		{"blank", "  ", ""},
		{"url", " https://acme.example/ok ", "https://acme.example/ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]interface{}{"appKey": testAppKey, "templateName": testTemplate}
			if tt.raw != nil {
				raw["urlRedirect"] = tt.raw
			}
			props := BuildProps(testPropsInput(t, raw))
			assert.Equal(t, tt.want, props.Redirect)
		})
	}
}

func TestBuildProps_NestedValuesPassThrough(t *testing.T) {
	in := testPropsInput(t, map[string]interface{}{
		"appKey":       testAppKey,
		"templateName": testTemplate,
		"message":      []interface{}{"a", "b"},
		"name":         nil,
	})

	sub := BuildProps(in).Submission
	assert.Equal(t, []interface{}{"a", "b"}, sub.TemplateData["message"])
	assert.Equal(t, "", sub.TemplateData["name"])
	assert.NotContains(t, sub.TemplateData, "email")
	assert.Equal(t, "", sub.ReplyTo)
}

func TestBuildProps_SpamOverrideReplacesRecipient(t *testing.T) {
	in := testPropsInput(t, map[string]interface{}{
		"appKey":       testAppKey,
		"templateName": testTemplate,
		"name":         "Jax",
	})

	sub := BuildProps(in).Submission
	flagged := sub.WithSpamVerdict(true)

	assert.Equal(t, model.SpamRecipient, flagged.Recipient)
	assert.Equal(t, "true", flagged.Spam)
	assert.Equal(t, testAppKey, sub.Recipient)
}
