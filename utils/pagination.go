// utils/pagination.go
package utils

import (
	"net/http"
	"strconv"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageParams are 1-based pagination parameters parsed from the query
// string, clamped to sane bounds.
type PageParams struct {
	Page  int
	Limit int
}

func (p PageParams) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

func ParsePageParams(r *http.Request) PageParams {
	params := PageParams{Page: 1, Limit: DefaultPageLimit}

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= MaxPageLimit {
			params.Limit = l
		}
	}

	return params
}

// PagedResponse is the envelope every listing endpoint returns.
type PagedResponse struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int64       `json:"totalPages"`
	Items      interface{} `json:"items"`
}

func NewPagedResponse(params PageParams, total int64, items interface{}) PagedResponse {
	totalPages := total / int64(params.Limit)
	if total%int64(params.Limit) != 0 {
		totalPages++
	}
	return PagedResponse{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Items:      items,
	}
}
