package store

// OffsetPage is the envelope every listing returns: one page of items plus
// the totals a client needs to render page controls.
type OffsetPage struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

func newOffsetPage(items interface{}, total int64, page, limit int) *OffsetPage {
	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
