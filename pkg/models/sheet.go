package models

// SheetSection is a transient extraction result: one date-labeled sub-section
// of a harvest-day section, with its order rows. Never persisted.
type SheetSection struct {
	// DateLabel is the raw header text as written in the sheet,
	// e.g. "Friday, August 15, 2025".
	DateLabel string `json:"date"`
	// ISODate is the canonical YYYY-MM-DD form of DateLabel.
	ISODate string `json:"iso_date"`
	// HeaderRow is the 1-based sheet row of the date header.
	HeaderRow int `json:"row_index"`
	// Rows holds the order rows in sheet order, each a 4-tuple of
	// (customer name, product name, size label, quantity text).
	Rows []SheetRow `json:"rows"`
}

// SheetRow is one order row from the spreadsheet's four-column data band.
type SheetRow struct {
	Customer string `json:"customer"`
	Product  string `json:"product"`
	Size     string `json:"size"`
	Quantity string `json:"qty"`
}
