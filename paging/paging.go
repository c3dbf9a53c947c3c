package paging

import (
	"context"
	"fmt"
)

const (
	// DefaultLimit is applied when a request carries no usable limit.
	DefaultLimit = 256
	// MaxLimit caps the page size.
	MaxLimit = 1024
)

// Params holds the unified pagination parameters
type Params struct {
	After  string `json:"after" form:"after"`
	Before string `json:"before" form:"before"`
	Limit  int    `json:"limit" form:"limit"`
}

// Result holds the pagination result
type Result[T any] struct {
	Edges       []Edge[T] `json:"edges"`
	Total       int64     `json:"total,omitempty"`
	NextCursor  string    `json:"next,omitempty"`
	HasNextPage bool      `json:"has_next"`
}

// NormalizeParams ensures that Limit is within an acceptable range
func NormalizeParams(params Params) Params {
	return NormalizeParamsWith(params, DefaultLimit, MaxLimit)
}

// NormalizeParamsWith is NormalizeParams with caller supplied bounds.
func NormalizeParamsWith(params Params, defaultLimit, maxLimit int) Params {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	if params.Limit <= 0 || params.Limit > maxLimit {
		params.Limit = defaultLimit
	}
	return params
}

// PagingFunc fetches at most limit edges around the cursors in params.
type PagingFunc[T any] func(ctx context.Context, params Params) (edges []Edge[T], total int64, err error)

// Paginate applies pagination using the provided PagingFunc. It asks for one
// extra edge to learn whether another page follows.
func Paginate[T any](ctx context.Context, params Params, paginateFunc PagingFunc[T]) (*Result[T], error) {
	params = NormalizeParams(params)
	return paginate(ctx, params, paginateFunc)
}

// PaginateWith is Paginate with caller supplied limit bounds.
func PaginateWith[T any](ctx context.Context, params Params, defaultLimit, maxLimit int, paginateFunc PagingFunc[T]) (*Result[T], error) {
	params = NormalizeParamsWith(params, defaultLimit, maxLimit)
	return paginate(ctx, params, paginateFunc)
}

func paginate[T any](ctx context.Context, params Params, paginateFunc PagingFunc[T]) (*Result[T], error) {
	limit := params.Limit
	params.Limit++
	edges, total, err := paginateFunc(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("pagination error: %w", err)
	}

	hasNextPage := false
	if len(edges) > limit {
		hasNextPage = true
		edges = edges[:limit]
	}

	if edges == nil {
		edges = make([]Edge[T], 0)
	}

	var nextCursor string
	if hasNextPage {
		nextCursor = edges[len(edges)-1].Cursor
	}

	return &Result[T]{
		Edges:       edges,
		Total:       total,
		NextCursor:  nextCursor,
		HasNextPage: hasNextPage,
	}, nil
}

// NoopPagingFunc is a noop paging function
func NoopPagingFunc[T any](context.Context, Params) ([]Edge[T], int64, error) {
	return nil, 0, nil
}
