package models

// Field is a semantic column of a time record
type Field string

const (
	FieldDate      Field = "date"
	FieldStartTime Field = "startTime"
	FieldEndTime   Field = "endTime"
	FieldDuration  Field = "duration"
	FieldCategory  Field = "category"
	FieldNote      Field = "note"
)

// FieldPriority is the order in which fields claim columns during auto mapping
var FieldPriority = []Field{
	FieldDate,
	FieldStartTime,
	FieldEndTime,
	FieldDuration,
	FieldCategory,
	FieldNote,
}

// ColumnMapping maps a semantic field to a header name
type ColumnMapping map[Field]string

// IsEmpty reports whether no field is mapped
func (m ColumnMapping) IsEmpty() bool {
	for _, header := range m {
		if header != "" {
			return false
		}
	}
	return true
}

// ExportMapping is the fixed mapping for the application's export format
func ExportMapping() ColumnMapping {
	return ColumnMapping{
		FieldDate:      "date",
		FieldStartTime: "start_time",
		FieldEndTime:   "end_time",
		FieldDuration:  "duration_minutes",
		FieldCategory:  "category",
		FieldNote:      "note",
	}
}

// IsValidField reports whether f is a known field
func IsValidField(f Field) bool {
	for _, known := range FieldPriority {
		if known == f {
			return true
		}
	}
	return false
}
