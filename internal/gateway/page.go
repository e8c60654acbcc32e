package gateway

import (
	"context"
	"net/url"
	"strconv"
)

// Page is the upstream's Spring-style pagination wrapper
type Page[T any] struct {
	Content       []T      `json:"content"`
	Pageable      Pageable `json:"pageable"`
	TotalElements int64    `json:"totalElements"`
	TotalPages    int      `json:"totalPages"`
	First         bool     `json:"first"`
	Last          bool     `json:"last"`
}

// Pageable echoes back the requested page window
type Pageable struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// PageQuery selects a page window plus optional sorting and searching.
// Page numbers are zero based, matching the upstream.
type PageQuery struct {
	Page          int
	Size          int
	SortBy        string
	Direction     string
	SearchColumn  string
	SearchKeyword string
}

// Values encodes the query for the upstream list endpoints. Page and size
// are always sent so results stay deterministic; the rest only when set.
func (q PageQuery) Values() url.Values {
	size := q.Size
	if size <= 0 {
		size = 10
	}

	values := url.Values{}
	values.Set("page", strconv.Itoa(q.Page))
	values.Set("size", strconv.Itoa(size))
	if q.SortBy != "" {
		values.Set("sortBy", q.SortBy)
	}
	if q.Direction != "" {
		values.Set("direction", q.Direction)
	}
	if q.SearchColumn != "" && q.SearchKeyword != "" {
		values.Set("searchColumn", q.SearchColumn)
		values.Set("searchKeyword", q.SearchKeyword)
	}
	return values
}

// listPage fetches and decodes a paginated list endpoint
func listPage[T any](ctx context.Context, c *Client, token, path string, q PageQuery) (*Page[T], error) {
	raw, err := c.do(ctx, token, "GET", path, q.Values(), nil)
	if err != nil {
		return nil, err
	}
	page, err := decode[Page[T]](raw)
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &Page[T]{}
	}
	return page, nil
}
