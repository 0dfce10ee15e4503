package excel

// ReaderConfig bounds what an uploaded workbook may contain
type ReaderConfig struct {
	AllowedExtensions []string `json:"allowed_extensions"`
	MaxFileSizeBytes  int64    `json:"max_file_size_bytes"`
	MaxSheets         int      `json:"max_sheets"`         // 0 disables the check
	MaxRowsPerSheet   int      `json:"max_rows_per_sheet"` // data rows, header excluded; 0 disables
	NormalizeHeaders  bool     `json:"normalize_headers"`  // NFC + trim
}

// DefaultReaderConfig returns the upload limits used by the API
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		AllowedExtensions: []string{".csv", ".xlsx"},
		MaxFileSizeBytes:  10 * 1024 * 1024,
		MaxSheets:         10,
		MaxRowsPerSheet:   1000,
		NormalizeHeaders:  true,
	}
}

// allows reports whether ext (lowercase, with dot) is accepted
func (c ReaderConfig) allows(ext string) bool {
	for _, a := range c.AllowedExtensions {
		if a == ext {
			return true
		}
	}
	return false
}
