package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
)

// DefaultSheetName is used when no sheet name is configured.
const DefaultSheetName = "Approved Hours"

// Column layout of the approved-hours sheet. Row 1 is the title, row 2 the
// header and data starts at row 3.
const (
	titleRow   = 1
	headerRow  = 2
	dataRowTop = 3

	colAccount  = "A"
	colName     = "B"
	colWeek     = "C"
	colDate     = "D"
	colCode     = "E"
	colProject  = "F"
	colTask     = "G"
	colHours    = "H"
	colBillable = "I"
	colNote     = "J"
	colApprover = "K"
)

var headers = []struct {
	col   string
	title string
	width float64
}{
	{colAccount, "Account", 18},
	{colName, "Name", 22},
	{colWeek, "Week", 12},
	{colDate, "Date", 12},
	{colCode, "Project Code", 14},
	{colProject, "Project", 24},
	{colTask, "Task", 14},
	{colHours, "Hours", 8},
	{colBillable, "Billable", 9},
	{colNote, "Note", 40},
	{colApprover, "Approved By", 18},
}

// WorkbookWriter implements port.WorkbookWriter with excelize
type WorkbookWriter struct {
	sheet  string
	logger *zap.Logger
}

// NewWorkbookWriter creates a writer producing one sheet named sheet
func NewWorkbookWriter(sheet string, logger *zap.Logger) *WorkbookWriter {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &WorkbookWriter{
		sheet:  sheet,
		logger: logger,
	}
}

// WriteApprovedHours renders rows followed by a totals row and returns the
// xlsx bytes.
func (w *WorkbookWriter) WriteApprovedHours(rows []port.ExportRow, weekStart time.Time) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", w.sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	title := fmt.Sprintf("Approved hours, week of %s", entity.FormatDate(weekStart))
	if err := w.setCell(file, colAccount, titleRow, title); err != nil {
		return nil, err
	}

	for _, h := range headers {
		if err := w.setCell(file, h.col, headerRow, h.title); err != nil {
			return nil, err
		}
		if err := file.SetColWidth(w.sheet, h.col, h.col, h.width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := file.SetCellStyle(w.sheet, cell(colAccount, titleRow), cell(colApprover, headerRow), bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	var total, billable float64
	row := dataRowTop
	for _, r := range rows {
		values := []struct {
			col string
			v   interface{}
		}{
			{colAccount, r.AccountID},
			{colName, r.AccountName},
			{colWeek, entity.FormatDate(r.WeekStart)},
			{colDate, entity.FormatDate(r.WorkDate)},
			{colCode, r.ProjectCode},
			{colProject, r.ProjectName},
			{colTask, r.TaskID},
			{colHours, r.Hours},
			{colBillable, yesNo(r.Billable)},
			{colNote, r.Note},
			{colApprover, r.ApprovedBy},
		}
		for _, v := range values {
			if err := w.setCell(file, v.col, row, v.v); err != nil {
				return nil, err
			}
		}
		total += r.Hours
		if r.Billable {
			billable += r.Hours
		}
		row++
	}

	totals := []struct {
		col string
		v   interface{}
	}{
		{colAccount, "Total"},
		{colHours, total},
		{colBillable, billable},
	}
	for _, v := range totals {
		if err := w.setCell(file, v.col, row, v.v); err != nil {
			return nil, err
		}
	}
	if err := file.SetCellStyle(w.sheet, cell(colAccount, row), cell(colApprover, row), bold); err != nil {
		return nil, fmt.Errorf("failed to style totals: %w", err)
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Info("Approved hours workbook rendered",
		zap.String("week_start", entity.FormatDate(weekStart)),
		zap.Int("rows", len(rows)),
		zap.Float64("total_hours", total))

	return buf.Bytes(), nil
}

func (w *WorkbookWriter) setCell(file *excelize.File, col string, row int, value interface{}) error {
	if err := file.SetCellValue(w.sheet, cell(col, row), value); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell(col, row), err)
	}
	return nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

var _ port.WorkbookWriter = (*WorkbookWriter)(nil)
