package writer

import (
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	appconfig "slotflow/config"
	"slotflow/logger"
	"slotflow/models"
)

const (
	// ReportFilename is the download name of the exported workbook.
	ReportFilename = "investice_ai_doporuceni_v41.xlsx"
	// ContentType is the MIME type of the exported workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	DefaultSheet   = "Sheet1"
	AggregateSheet = "Aggregate"

	dateLayout = "2006-01-02"
)

// ReportColumns is the fixed column order of the report sheet.
var ReportColumns = []string{
	"Date",
	"Slot ID",
	"Source",
	"Slot Type",
	"Mining Subject",
	"Deposited Amount",
	"Total Amount",
	"Max Loss (%)",
	"Profit/Loss",
	"Return %",
	"Risk Band",
	"Recommended Weight",
	"Allocation Ratio",
	"AI Suggested Deposit",
}

// AggregateColumns is the column order of the optional aggregate sheet.
var AggregateColumns = []string{"Slot Type", "Risk Band", "Mean Return %", "Count"}

// XLSXExporter serializes a report into a workbook. Results are memoized by
// the content of the slot table.
type XLSXExporter struct {
	sheet            string
	includeAggregate bool
	memo             *Memo
	log              *logger.Log
}

func NewXLSXExporter(cfg appconfig.ExportConfig) *XLSXExporter {
	sheet := cfg.SheetName
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &XLSXExporter{
		sheet:            sheet,
		includeAggregate: cfg.IncludeAggregate,
		memo:             NewMemo(),
		log:              logger.GetLogger(),
	}
}

// Memo exposes the export cache.
func (e *XLSXExporter) Memo() *Memo {
	return e.memo
}

// Export returns the workbook bytes for report.
func (e *XLSXExporter) Export(report *models.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("export: nil report")
	}
	log := e.log.WithComponent("xlsx_exporter").WithFields(logger.Fields{"run_id": report.RunID})

	key, err := MemoKey(report.Slots)
	if err != nil {
		return nil, err
	}
	if data, ok := e.memo.Get(key); ok {
		log.WithFields(logger.Fields{"key": key[:12]}).Debug("export served from memo")
		return data, nil
	}

	start := time.Now()
	data, err := e.build(report)
	if err != nil {
		return nil, err
	}
	e.memo.Put(key, data)

	logger.LogPerformanceEntry(log, "xlsx_exporter", "export", time.Since(start), logger.Fields{
		"rows":  len(report.Slots),
		"bytes": len(data),
	})
	return data, nil
}

func (e *XLSXExporter) build(report *models.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if e.sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, e.sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}
	if err := writeRows(f, e.sheet, ReportColumns, len(report.Slots), func(i int) []interface{} {
		return slotRow(report.Slots[i])
	}); err != nil {
		return nil, err
	}

	if e.includeAggregate {
		if _, err := f.NewSheet(AggregateSheet); err != nil {
			return nil, fmt.Errorf("create aggregate sheet: %w", err)
		}
		if err := writeRows(f, AggregateSheet, AggregateColumns, len(report.Aggregate), func(i int) []interface{} {
			a := report.Aggregate[i]
			return []interface{}{a.SlotType, a.RiskBand.String(), number(a.MeanReturn), a.Count}
		}); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, header []string, n int, row func(int) []interface{}) error {
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}

func slotRow(s models.SlotSummary) []interface{} {
	var date interface{}
	if s.FirstDepositDate != nil {
		date = s.FirstDepositDate.Format(dateLayout)
	}
	return []interface{}{
		date,
		nullable(s.SlotID),
		s.Source,
		s.SlotType,
		s.MiningSubject,
		nullable(s.DepositedAmount),
		number(s.FinalTotal),
		maxLoss(s.MaxLoss),
		nullable(s.NetProfitLoss),
		number(s.ReturnPercent),
		s.RiskBand.String(),
		s.RecommendedWeight,
		nullable(s.AllocationRatio),
		nullable(s.AISuggestedDeposit),
	}
}

// number leaves non-finite values as empty cells.
func number(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullable(n models.NullFloat) interface{} {
	if !n.Valid {
		return nil
	}
	return number(n.Value)
}

func maxLoss(m models.MaxLoss) interface{} {
	if m.IsUnspecified() {
		return m.String()
	}
	return m.Percent.Value
}
