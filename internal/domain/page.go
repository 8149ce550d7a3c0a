package domain

// ListQuery selects one page of links, optionally filtered by a search term.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// Pagination describes where a page sits within the filtered result set.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// Page is one page of results plus its pagination block.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
