package playfab

// ExportPlayersInSegmentRequest for POST /Admin/ExportPlayersInSegment
type ExportPlayersInSegmentRequest struct {
	SegmentID string `json:"SegmentId"`
}

// ExportPlayersInSegmentResult is the data of a successful start call.
type ExportPlayersInSegmentResult struct {
	ExportID  string `json:"ExportId"`
	SegmentID string `json:"SegmentId"`
}

// GetSegmentExportRequest for POST /Admin/GetSegmentExport
type GetSegmentExportRequest struct {
	ExportID string `json:"ExportId"`
}

// GetSegmentExportResult is the data of a status call. IndexURL is only
// set once State is "Complete".
type GetSegmentExportResult struct {
	ExportID string `json:"ExportId"`
	State    string `json:"State"`
	IndexURL string `json:"IndexUrl"`
}

// StateComplete is the only export state that carries an index URL.
const StateComplete = "Complete"
