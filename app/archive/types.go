package archive

// Message is a single chat entry within a record. Read-only once parsed.
type Message struct {
	Content string `json:"content"`
	Time    string `json:"time"`
	Name    string `json:"name"`
}

// Record is one parsed chat-log file. SourceDirectory and SourceFile are
// provenance fields injected during the merge, they are never present in the
// exported files themselves.
type Record struct {
	Date            string    `json:"date"`
	Chats           []Message `json:"chats"`
	SourceDirectory string    `json:"source_directory"`
	SourceFile      string    `json:"source_file"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Metadata is always derived from the final record slice, never hand-edited.
type Metadata struct {
	TotalRecords      int       `json:"total_records"`
	DateRange         DateRange `json:"date_range"`
	SourceDirectories []string  `json:"source_directories"`
}

// Dataset is the merged corpus: records ordered by ascending date, with a
// stable order among records sharing a date (directory walk order).
type Dataset struct {
	AllRecords []Record `json:"all_records"`
	Metadata   Metadata `json:"metadata"`
}
