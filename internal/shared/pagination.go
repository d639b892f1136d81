package shared

// DefaultPageLimit is applied when a listing request omits a limit.
const DefaultPageLimit = 50

// Page carries pagination metadata for listing responses.
//
// Total reflects the number of rows on the returned page, not the full
// count of matching rows. Callers that need an exact total must issue a
// separate count query; the handlers deliberately do not.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// NewPage normalises limit/offset and records the page row count.
func NewPage(limit, offset, rows int) Page {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset, Total: rows}
}
