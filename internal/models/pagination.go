package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Normalize clamps page parameters, falling back to the given page size.
func (p *Pagination) Normalize(defaultSize, maxSize int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
}

// Bounds returns the slice bounds of the current page within total items.
func (p Pagination) Bounds(total int) (start, end int) {
	start = (p.Page - 1) * p.PageSize
	if start > total {
		start = total
	}
	end = start + p.PageSize
	if end > total {
		end = total
	}
	return start, end
}
