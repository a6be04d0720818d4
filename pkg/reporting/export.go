package reporting

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/GYB356/climabill-sub002/pkg/models"
)

// Exporter converts usage records to Arrow.
type Exporter struct {
	allocator memory.Allocator
	schema    *arrow.Schema
}

func NewExporter() *Exporter {
	return &Exporter{
		allocator: memory.DefaultAllocator,
		schema:    UsageSchema(),
	}
}

// UsageRecord builds one record batch from usage. The caller releases it.
func (e *Exporter) UsageRecord(usage []models.CarbonUsage) arrow.Record {
	builder := array.NewRecordBuilder(e.allocator, e.schema)
	defer builder.Release()

	idBuilder := builder.Field(0).(*array.StringBuilder)
	userBuilder := builder.Field(1).(*array.StringBuilder)
	orgBuilder := builder.Field(2).(*array.StringBuilder)
	deptBuilder := builder.Field(3).(*array.StringBuilder)
	projBuilder := builder.Field(4).(*array.StringBuilder)
	nameBuilder := builder.Field(5).(*array.StringBuilder)
	startBuilder := builder.Field(6).(*array.TimestampBuilder)
	endBuilder := builder.Field(7).(*array.TimestampBuilder)
	invoiceBuilder := builder.Field(8).(*array.Int64Builder)
	emailBuilder := builder.Field(9).(*array.Int64Builder)
	storageBuilder := builder.Field(10).(*array.Float64Builder)
	apiBuilder := builder.Field(11).(*array.Int64Builder)
	totalBuilder := builder.Field(12).(*array.Float64Builder)
	offsetBuilder := builder.Field(13).(*array.Float64Builder)
	remainingBuilder := builder.Field(14).(*array.Float64Builder)

	for _, u := range usage {
		idBuilder.Append(u.ID)
		userBuilder.Append(u.UserID)
		appendOptional(orgBuilder, u.OrganizationID)
		appendOptional(deptBuilder, u.DepartmentID)
		appendOptional(projBuilder, u.ProjectID)
		appendOptional(nameBuilder, u.PeriodName)
		startBuilder.Append(arrow.Timestamp(u.PeriodStart.UnixMilli()))
		endBuilder.Append(arrow.Timestamp(u.PeriodEnd.UnixMilli()))
		invoiceBuilder.Append(int64(u.InvoiceCount))
		emailBuilder.Append(int64(u.EmailCount))
		storageBuilder.Append(u.StorageGB)
		apiBuilder.Append(int64(u.APICallCount))
		totalBuilder.Append(u.TotalCarbonInKg)
		offsetBuilder.Append(u.OffsetCarbonInKg)
		remainingBuilder.Append(u.RemainingCarbonInKg)
	}

	return builder.NewRecord()
}

func appendOptional(b *array.StringBuilder, v string) {
	if v == "" {
		b.AppendNull()
		return
	}
	b.Append(v)
}

// WriteUsage writes usage to w as an Arrow IPC stream of a single batch.
func (e *Exporter) WriteUsage(w io.Writer, usage []models.CarbonUsage) error {
	record := e.UsageRecord(usage)
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(e.schema), ipc.WithAllocator(e.allocator))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	return nil
}

// ReadUsage decodes every batch of an IPC stream written by WriteUsage.
func ReadUsage(r io.Reader) ([]models.CarbonUsage, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	if !reader.Schema().Equal(UsageSchema()) {
		return nil, errors.New("stream does not carry usage records")
	}

	var usage []models.CarbonUsage
	for reader.Next() {
		usage = append(usage, recordToUsage(reader.Record())...)
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return usage, nil
}

func recordToUsage(record arrow.Record) []models.CarbonUsage {
	ids := record.Column(0).(*array.String)
	users := record.Column(1).(*array.String)
	orgs := record.Column(2).(*array.String)
	depts := record.Column(3).(*array.String)
	projs := record.Column(4).(*array.String)
	names := record.Column(5).(*array.String)
	starts := record.Column(6).(*array.Timestamp)
	ends := record.Column(7).(*array.Timestamp)
	invoices := record.Column(8).(*array.Int64)
	emails := record.Column(9).(*array.Int64)
	storage := record.Column(10).(*array.Float64)
	apiCalls := record.Column(11).(*array.Int64)
	totals := record.Column(12).(*array.Float64)
	offsets := record.Column(13).(*array.Float64)
	remaining := record.Column(14).(*array.Float64)

	out := make([]models.CarbonUsage, record.NumRows())
	for i := range out {
		out[i] = models.CarbonUsage{
			ID:                  ids.Value(i),
			UserID:              users.Value(i),
			OrganizationID:      optional(orgs, i),
			DepartmentID:        optional(depts, i),
			ProjectID:           optional(projs, i),
			PeriodName:          optional(names, i),
			PeriodStart:         time.UnixMilli(int64(starts.Value(i))).UTC(),
			PeriodEnd:           time.UnixMilli(int64(ends.Value(i))).UTC(),
			InvoiceCount:        int(invoices.Value(i)),
			EmailCount:          int(emails.Value(i)),
			StorageGB:           storage.Value(i),
			APICallCount:        int(apiCalls.Value(i)),
			TotalCarbonInKg:     totals.Value(i),
			OffsetCarbonInKg:    offsets.Value(i),
			RemainingCarbonInKg: remaining.Value(i),
		}
	}
	return out
}

func optional(col *array.String, i int) string {
	if col.IsNull(i) {
		return ""
	}
	return col.Value(i)
}
