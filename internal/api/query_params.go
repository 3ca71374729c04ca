package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/murmurapp/murmur-server/internal/query"
)

// QueryInput captures the raw query string as list parameters. Filter keys
// like likeCount[gte] are not declared operation parameters, so they are read
// directly from the URL.
type QueryInput struct {
	Params query.Params `json:"-"`
}

// Resolve implements huma.Resolver.
func (q *QueryInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	q.Params = query.FromValues(u.Query())
	return nil
}

// ListResponse is one page of a list read.
type ListResponse struct {
	Results       int              `json:"results" doc:"Number of items on this page"`
	TotalFiltered int              `json:"totalFiltered" doc:"Items matching the filter across all pages"`
	Page          int              `json:"page" doc:"Page number, starting at 1"`
	Limit         int              `json:"limit" doc:"Page size"`
	HasMore       bool             `json:"hasMore" doc:"Whether a later page exists"`
	Items         []query.Document `json:"items" doc:"Projected records"`
}

// ListOutput wraps a list response for Huma.
type ListOutput struct {
	Body ListResponse
}

func newListOutput(res *query.Result) *ListOutput {
	return &ListOutput{Body: ListResponse{
		Results:       len(res.Items),
		TotalFiltered: res.Total,
		Page:          res.Page,
		Limit:         res.Limit,
		HasMore:       res.HasMore,
		Items:         res.Items,
	}}
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" doc:"Human-readable result"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// IDInput identifies one record by path parameter.
type IDInput struct {
	ID string `path:"id" doc:"Record ID"`
}
