package constants

const (
	// TableName is the persisted allocation table.
	TableName = "hall_allocations"
	// ConflictKey decides insert-vs-replace during upsert.
	ConflictKey = "register_number"

	DefaultBatchSize = 100

	// UnknownValue fills positional OCR fields the text ran out of.
	UnknownValue = "Unknown"
	// DefaultExamTime is assigned to OCR-extracted records.
	DefaultExamTime = "09:00 AM"
	DateLayout      = "2006-01-02"

	TemplateFileName = "hall-allocation-template.csv"
)
