// Package reporting exports carbon usage as Apache Arrow IPC streams.
package reporting

import (
	"github.com/apache/arrow/go/v17/arrow"
)

// ContentType is the media type of an Arrow IPC stream.
const ContentType = "application/vnd.apache.arrow.stream"

// UsageSchema is the Arrow schema of an exported usage record. Scope and
// period name columns are null when unset.
func UsageSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "id", Type: arrow.BinaryTypes.String},
			{Name: "user_id", Type: arrow.BinaryTypes.String},
			{Name: "organization_id", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "department_id", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "project_id", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "period_name", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "period_start", Type: arrow.FixedWidthTypes.Timestamp_ms},
			{Name: "period_end", Type: arrow.FixedWidthTypes.Timestamp_ms},
			{Name: "invoice_count", Type: arrow.PrimitiveTypes.Int64},
			{Name: "email_count", Type: arrow.PrimitiveTypes.Int64},
			{Name: "storage_gb", Type: arrow.PrimitiveTypes.Float64},
			{Name: "api_call_count", Type: arrow.PrimitiveTypes.Int64},
			{Name: "total_carbon_kg", Type: arrow.PrimitiveTypes.Float64},
			{Name: "offset_carbon_kg", Type: arrow.PrimitiveTypes.Float64},
			{Name: "remaining_carbon_kg", Type: arrow.PrimitiveTypes.Float64},
		},
		nil,
	)
}
