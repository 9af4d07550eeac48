package writer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"slotflow/logger"
	"slotflow/models"
)

// ParquetRecord is one slot row of the parquet export. Nullable cells are
// OPTIONAL columns.
type ParquetRecord struct {
	RunID              string   `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstDepositDate   *int64   `parquet:"name=first_deposit_date, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	SlotID             *float64 `parquet:"name=slot_id, type=DOUBLE, repetitiontype=OPTIONAL"`
	Source             string   `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	SlotType           string   `parquet:"name=slot_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	MiningSubject      string   `parquet:"name=mining_subject, type=BYTE_ARRAY, convertedtype=UTF8"`
	DepositedAmount    *float64 `parquet:"name=deposited_amount, type=DOUBLE, repetitiontype=OPTIONAL"`
	NetProfitLoss      *float64 `parquet:"name=net_profit_loss, type=DOUBLE, repetitiontype=OPTIONAL"`
	FinalTotal         *float64 `parquet:"name=final_total, type=DOUBLE, repetitiontype=OPTIONAL"`
	ReturnPercent      *float64 `parquet:"name=return_percent, type=DOUBLE, repetitiontype=OPTIONAL"`
	MaxLoss            *float64 `parquet:"name=max_loss, type=DOUBLE, repetitiontype=OPTIONAL"`
	RiskBand           string   `parquet:"name=risk_band, type=BYTE_ARRAY, convertedtype=UTF8"`
	RecommendedWeight  float64  `parquet:"name=recommended_weight, type=DOUBLE"`
	AllocationRatio    *float64 `parquet:"name=allocation_ratio, type=DOUBLE, repetitiontype=OPTIONAL"`
	AISuggestedDeposit *float64 `parquet:"name=ai_suggested_deposit, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// memoryFileWriter implements source.ParquetFile over an in-memory buffer.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

// Seek only reports the current size; the writer never seeks backwards.
func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// ParquetFilename derives the parquet artifact name from the workbook name.
func ParquetFilename(xlsxName string) string {
	return strings.TrimSuffix(xlsxName, filepath.Ext(xlsxName)) + ".parquet"
}

func toParquetRecord(runID string, s models.SlotSummary) ParquetRecord {
	rec := ParquetRecord{
		RunID:              runID,
		SlotID:             s.SlotID.Ptr(),
		Source:             s.Source,
		SlotType:           s.SlotType,
		MiningSubject:      s.MiningSubject,
		DepositedAmount:    s.DepositedAmount.Ptr(),
		NetProfitLoss:      s.NetProfitLoss.Ptr(),
		FinalTotal:         finitePtr(s.FinalTotal),
		ReturnPercent:      finitePtr(s.ReturnPercent),
		MaxLoss:            s.MaxLoss.Percent.Ptr(),
		RiskBand:           s.RiskBand.String(),
		RecommendedWeight:  s.RecommendedWeight,
		AllocationRatio:    s.AllocationRatio.Ptr(),
		AISuggestedDeposit: s.AISuggestedDeposit.Ptr(),
	}
	if s.FirstDepositDate != nil {
		ms := s.FirstDepositDate.UnixMilli()
		rec.FirstDepositDate = &ms
	}
	return rec
}

func finitePtr(v float64) *float64 {
	if !models.IsNumber(v) {
		return nil
	}
	return &v
}

// EncodeParquet writes the slot table of report as a parquet file.
// compression is one of snappy, gzip or uncompressed.
func EncodeParquet(report *models.Report, compression string) ([]byte, error) {
	log := logger.GetLogger().WithComponent("parquet_writer").WithFields(logger.Fields{
		"run_id":    report.RunID,
		"operation": "create_parquet_file",
	})

	fw := newMemoryFileWriter()
	pw, err := writer.NewParquetWriter(fw, new(ParquetRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, s := range report.Slots {
		if err := pw.Write(toParquetRecord(report.RunID, s)); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	data := fw.Bytes()
	log.WithFields(logger.Fields{
		"file_size":   len(data),
		"rows":        len(report.Slots),
		"compression": compression,
	}).Debug("parquet file created")
	return data, nil
}
