package sheets

// Spreadsheet is the subset of the spreadsheets.get response we use.
type Spreadsheet struct {
	Sheets []Sheet `json:"sheets"`
}

// Sheet describes one tab of a spreadsheet.
type Sheet struct {
	Properties SheetProperties `json:"properties"`
}

// SheetProperties carries the tab's numeric ID and title.
type SheetProperties struct {
	SheetID int64  `json:"sheetId"`
	Title   string `json:"title"`
}

// ValueRange addresses a block of cell values.
type ValueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

// valueRangeResponse decodes values.get, whose cells are untyped.
type valueRangeResponse struct {
	Range  string          `json:"range"`
	Values [][]interface{} `json:"values"`
}

type batchUpdateValuesRequest struct {
	ValueInputOption string       `json:"valueInputOption"`
	Data             []ValueRange `json:"data"`
}

type batchUpdateRequest struct {
	Requests []Request `json:"requests"`
}

// Request is one structural batchUpdate request. Exactly one field is
// set per request.
type Request struct {
	AddSheet        *AddSheetRequest        `json:"addSheet,omitempty"`
	DeleteDimension *DeleteDimensionRequest `json:"deleteDimension,omitempty"`
}

// AddSheetRequest creates a new tab.
type AddSheetRequest struct {
	Properties AddSheetProperties `json:"properties"`
}

// AddSheetProperties names the tab to create.
type AddSheetProperties struct {
	Title string `json:"title"`
}

// DeleteDimensionRequest removes a run of rows or columns.
type DeleteDimensionRequest struct {
	Range DimensionRange `json:"range"`
}

// DimensionRange is a half-open [StartIndex, EndIndex) span of rows or
// columns, 0-based.
type DimensionRange struct {
	SheetID    int64  `json:"sheetId"`
	Dimension  string `json:"dimension"`
	StartIndex int64  `json:"startIndex"`
	EndIndex   int64  `json:"endIndex"`
}
