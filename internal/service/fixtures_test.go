package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"formsync/internal/akismet"
	"formsync/internal/docstore"
	"formsync/internal/model"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	testAppKey   = "acme"
	testTemplate = "contactDefault"
	testOrigin   = "https://acme.example"
)

var testNow = time.Date(2024, 3, 5, 17, 4, 5, 0, time.UTC)

func testApp() map[string]interface{} {
	return map[string]interface{}{
		"appInfo": map[string]interface{}{
			"appName":     "Acme",
			"appUrl":      testOrigin,
			"appTimeZone": "America/New_York",
			"appFrom":     "forms@acme.example",
		},
		"condition": map[string]interface{}{
			"messageGlobal":     false,
			"corsBypass":        false,
			"submitForm":        true,
			"spamFilterAkismet": true,
		},
		"spamFilterAkismet": map[string]interface{}{"key": "akismet-key"},
		"spreadsheet": map[string]interface{}{
			"id":      "ss-1",
			"sheetId": map[string]interface{}{},
		},
		"message": map[string]interface{}{
			"success": "Thanks",
			"error":   "Oops",
		},
	}
}

func testGlobal(messageGlobal, corsBypass, submitForm, spam model.Condition) map[string]interface{} {
	return map[string]interface{}{
		"condition": map[string]interface{}{
			"messageGlobal":     int(messageGlobal),
			"corsBypass":        int(corsBypass),
			"submitForm":        int(submitForm),
			"spamFilterAkismet": int(spam),
		},
		"message": map[string]interface{}{
			"success": "Global thanks",
			"error":   "Global error",
		},
	}
}

func testTemplateDoc() map[string]interface{} {
	return map[string]interface{}{
		"fields": map[string]interface{}{
			"name":    map[string]interface{}{"position": 1, "sheetHeader": "Name"},
			"email":   map[string]interface{}{"position": 2, "sheetHeader": "Email"},
			"message": map[string]interface{}{"position": 3, "sheetHeader": "Message"},
		},
		"spamFilterAkismet": map[string]interface{}{
			"content": []interface{}{"message"},
			"other":   []interface{}{"name", "email"},
		},
	}
}

// newTestStore seeds a store with one app, the global config, the field
// registry and one template. All global conditions defer to the app.
func newTestStore(t *testing.T) *docstore.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	store.SetClock(func() time.Time { return testNow })

	d := model.ConditionDeferToApp
	require.NoError(t, store.Set(ctx, CollectionGlobal, GlobalAppDocument, testGlobal(d, d, d, d)))
	require.NoError(t, store.Set(ctx, CollectionApp, testAppKey, testApp()))
	require.NoError(t, store.Set(ctx, CollectionFormField, "appKey", map[string]interface{}{"required": true}))
	require.NoError(t, store.Set(ctx, CollectionFormField, "templateName", map[string]interface{}{"required": true}))
	require.NoError(t, store.Set(ctx, CollectionFormField, "urlRedirect", map[string]interface{}{"default": true, "value": "false"}))
	require.NoError(t, store.Set(ctx, CollectionFormTemplate, testTemplate, testTemplateDoc()))
	return store
}

func updateApp(t *testing.T, store docstore.Store, path []string, value interface{}) {
	t.Helper()
	require.NoError(t, store.UpdatePath(context.Background(), CollectionApp, testAppKey, path, value))
}

type fakeClassifier struct {
	spam      bool
	err       error
	calls     int
	verifies  int
	lastInput akismet.Comment
}

func (f *fakeClassifier) CheckSpam(ctx context.Context, comment akismet.Comment) (bool, error) {
	f.calls++
	f.lastInput = comment
	return f.spam, f.err
}

func (f *fakeClassifier) VerifyKey(ctx context.Context) (bool, error) {
	f.verifies++
	return true, nil
}

func (f *fakeClassifier) factory() ClassifierFactory {
	return func(app *model.App) SpamClassifier { return f }
}

type fakeJobClient struct {
	enqueued []string
	resynced []string
	err      error
}

func (f *fakeJobClient) EnqueueSheetSync(submissionID string) error {
	f.enqueued = append(f.enqueued, submissionID)
	return f.err
}

func (f *fakeJobClient) ResyncSheet(submissionID string) error {
	f.resynced = append(f.resynced, submissionID)
	return f.err
}

type publishedEvent struct {
	appKey string
	event  map[string]interface{}
}

type fakeBus struct {
	events []publishedEvent
}

func (f *fakeBus) PublishApp(appKey string, event map[string]interface{}) error {
	f.events = append(f.events, publishedEvent{appKey: appKey, event: event})
	return nil
}

type valuesWrite struct {
	rng  string
	rows [][]interface{}
}

// fakeSheets is an in-memory spreadsheet recording every mutation
type fakeSheets struct {
	ids     map[string]int64
	nextID  int64
	batches [][]*gsheets.Request
	writes  []valuesWrite
}

func newFakeSheets(ids map[string]int64) *fakeSheets {
	if ids == nil {
		ids = make(map[string]int64)
	}
	return &fakeSheets{ids: ids, nextID: 42}
}

func (f *fakeSheets) SheetIDs(ctx context.Context, spreadsheetID string) (map[string]int64, error) {
	out := make(map[string]int64, len(f.ids))
	for k, v := range f.ids {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSheets) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*gsheets.Request) (*gsheets.BatchUpdateSpreadsheetResponse, error) {
	f.batches = append(f.batches, requests)
	resp := &gsheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: spreadsheetID}
	for _, r := range requests {
		reply := &gsheets.Response{}
		if r.AddSheet != nil {
			id := f.nextID
			f.nextID++
			f.ids[r.AddSheet.Properties.Title] = id
			reply.AddSheet = &gsheets.AddSheetResponse{
				Properties: &gsheets.SheetProperties{SheetId: id, Title: r.AddSheet.Properties.Title},
			}
		}
		resp.Replies = append(resp.Replies, reply)
	}
	return resp, nil
}

func (f *fakeSheets) UpdateValues(ctx context.Context, spreadsheetID, a1Range string, rows [][]interface{}) error {
	f.writes = append(f.writes, valuesWrite{rng: a1Range, rows: rows})
	return nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
