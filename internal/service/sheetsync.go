package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"formsync/internal/docstore"
	"formsync/internal/model"
	"formsync/internal/sheets"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	gsheets "google.golang.org/api/sheets/v4"
)

// Row date and time layouts
const (
	SheetDateLayout = "1/2/2006"
	SheetTimeLayout = "3:04:05 PM MST"
)

// Spreadsheets is the remote tabular API used by sheet sync
type Spreadsheets interface {
	SheetIDs(ctx context.Context, spreadsheetID string) (map[string]int64, error)
	BatchUpdate(ctx context.Context, spreadsheetID string, requests []*gsheets.Request) (*gsheets.BatchUpdateSpreadsheetResponse, error)
	UpdateValues(ctx context.Context, spreadsheetID, a1Range string, rows [][]interface{}) error
}

// SheetSync mirrors stored submissions into the app's spreadsheet
type SheetSync struct {
	store       docstore.Store
	resolver    *ConfigResolver
	fields      *FieldRegistry
	submissions *SubmissionStore
	sheets      Spreadsheets
	log         *zap.Logger
}

func NewSheetSync(store docstore.Store, sheets Spreadsheets, log *zap.Logger) *SheetSync {
	return &SheetSync{
		store:       store,
		resolver:    NewConfigResolver(store),
		fields:      NewFieldRegistry(store),
		submissions: NewSubmissionStore(store),
		sheets:      sheets,
		log:         log,
	}
}

// Sync writes one submission as a new row under the header of the sheet
// named after its template, creating the sheet when it does not exist.
func (s *SheetSync) Sync(ctx context.Context, submissionID string) error {
	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return err
	}
	app, err := s.resolver.LoadApp(ctx, sub.AppKey)
	if err != nil {
		return fmt.Errorf("failed to load app %s: %w", sub.AppKey, err)
	}
	tmpl, err := s.fields.TemplateFor(ctx, sub.TemplateName)
	if err != nil {
		return err
	}

	ssID := app.Spreadsheet.ID
	if ssID == "" {
		return fmt.Errorf("%w: %s", ErrNoSpreadsheet, app.ID)
	}

	log := s.log.With(
		zap.String("submission_id", submissionID),
		zap.String("app_key", app.ID),
		zap.String("template", tmpl.ID),
		zap.String("spreadsheet_id", ssID),
	)

	row := BuildDataRow(sub, tmpl, s.location(app, log))
	header := BuildHeaderRow(tmpl)

	existing, err := s.sheets.SheetIDs(ctx, ssID)
	if err != nil {
		return err
	}

	if sheetID, ok := existing[tmpl.ID]; ok {
		known, mapped := app.Spreadsheet.SheetID[tmpl.ID]
		if !mapped || known != sheetID {
			if err := s.saveSheetID(ctx, app.ID, tmpl.ID, sheetID); err != nil {
				log.Warn("Failed to repair sheet id mapping", zap.Int64("sheet_id", sheetID), zap.Error(err))
			}
		}
		if !mapped {
			// an earlier attempt may have stopped between creating the sheet and recording it
			if err := s.writeHeader(ctx, ssID, tmpl.ID, header); err != nil {
				return err
			}
		}
		return s.prependRow(ctx, ssID, tmpl.ID, sheetID, row, log)
	}

	return s.createSheet(ctx, ssID, app.ID, tmpl.ID, header, row, log)
}

// Permanent reports whether a sync error will not go away on redelivery.
func (s *SheetSync) Permanent(err error) bool {
	return errors.Is(err, docstore.ErrNotFound) ||
		errors.Is(err, ErrNoSpreadsheet) ||
		errors.Is(err, ErrTemplateNotFound)
}

func (s *SheetSync) prependRow(ctx context.Context, ssID, title string, sheetID int64, row []interface{}, log *zap.Logger) error {
	if _, err := s.sheets.BatchUpdate(ctx, ssID, []*gsheets.Request{sheets.InsertRows(sheetID, 1, 1)}); err != nil {
		return err
	}
	if err := s.sheets.UpdateValues(ctx, ssID, sheets.A1(title, "A2"), [][]interface{}{row}); err != nil {
		return err
	}
	log.Info("Submission row inserted", zap.Int64("sheet_id", sheetID))
	return nil
}

func (s *SheetSync) createSheet(ctx context.Context, ssID, appKey, title string, header, row []interface{}, log *zap.Logger) error {
	resp, err := s.sheets.BatchUpdate(ctx, ssID, []*gsheets.Request{sheets.AddSheet(title)})
	if err != nil {
		return err
	}
	sheetID, err := sheets.AddedSheetID(resp)
	if err != nil {
		return err
	}
	if err := s.writeHeader(ctx, ssID, title, header); err != nil {
		return err
	}
	if err := s.saveSheetID(ctx, appKey, title, sheetID); err != nil {
		return err
	}
	if err := s.sheets.UpdateValues(ctx, ssID, sheets.A1(title, "A2"), [][]interface{}{row}); err != nil {
		return err
	}
	log.Info("Sheet created", zap.Int64("sheet_id", sheetID))
	return nil
}

func (s *SheetSync) writeHeader(ctx context.Context, ssID, title string, header []interface{}) error {
	return s.sheets.UpdateValues(ctx, ssID, sheets.A1(title, "A1"), [][]interface{}{header})
}

func (s *SheetSync) saveSheetID(ctx context.Context, appKey, template string, sheetID int64) error {
	path := []string{"spreadsheet", "sheetId", template}
	if err := s.store.UpdatePath(ctx, CollectionApp, appKey, path, sheetID); err != nil {
		return fmt.Errorf("failed to save sheet id for %s: %w", template, err)
	}
	return nil
}

func (s *SheetSync) location(app *model.App, log *zap.Logger) *time.Location {
	if app.AppInfo.AppTimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(app.AppInfo.AppTimeZone)
	if err != nil {
		log.Warn("Unknown app time zone, using UTC", zap.String("time_zone", app.AppInfo.AppTimeZone), zap.Error(err))
		return time.UTC
	}
	return loc
}

// BuildDataRow renders a submission as [date, time, fields...] with the
// fields in template order. Missing fields become empty strings.
func BuildDataRow(sub *model.Submission, tmpl *model.Template, loc *time.Location) []interface{} {
	created := sub.CreatedAt.In(loc)
	row := make([]interface{}, 0, len(tmpl.Fields)+2)
	row = append(row, created.Format(SheetDateLayout), created.Format(SheetTimeLayout))
	for _, f := range tmpl.Fields {
		v, ok := sub.TemplateData[f.ID]
		if !ok || v == nil {
			row = append(row, "")
			continue
		}
		row = append(row, cellValue(v))
	}
	return row
}

// cellValue renders nested values as JSON and scalars as plain text.
func cellValue(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return cast.ToString(v)
	}
}

// BuildHeaderRow returns ["Date", "Time", headers...] in template order.
// A field without a sheet header is labelled with its id.
func BuildHeaderRow(tmpl *model.Template) []interface{} {
	row := make([]interface{}, 0, len(tmpl.Fields)+2)
	row = append(row, "Date", "Time")
	for _, f := range tmpl.Fields {
		if f.SheetHeader != "" {
			row = append(row, f.SheetHeader)
		} else {
			row = append(row, f.ID)
		}
	}
	return row
}
