// Read-only HTTP query API over the persisted store.
//
//   GET /tags                     tags with their row counts and columns
//   GET /tags/{tag}/rows          all rows of the tag, ascending by run
//   GET /tags/{tag}/rows/{run}    the row of one run
//   GET /metrics                  Prometheus metrics
//
// The OpenAPI description is at /openapi.json.

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecloudframes/auth"
)

const Realm = "ecloudframes"

type TagInfo struct {
	Tag     string   `json:"tag"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

type RowInfo struct {
	Run      int64          `json:"run"`
	Features map[string]any `json:"features"`
}

type TableInfo struct {
	Tag     string    `json:"tag"`
	Columns []string  `json:"columns"`
	Rows    []RowInfo `json:"rows"`
}

type tagsOutput struct {
	Body []TagInfo
}

type tagInput struct {
	Tag string `path:"tag" doc:"Tag name"`
}

type tableOutput struct {
	Body TableInfo
}

type rowInput struct {
	Tag string `path:"tag" doc:"Tag name"`
	Run int64  `path:"run" doc:"Run number"`
}

type rowOutput struct {
	Body RowInfo
}

// The handler for the API, metrics included, behind basic authentication if authenticator is not
// nil.  version is reported in the OpenAPI description.
func NewHandler(snap *Snapshot, authenticator *auth.Authenticator, version string) http.Handler {
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("ecloudframes", version))

	huma.Register(api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/tags",
		Summary:     "List tags",
	}, func(ctx context.Context, input *struct{}) (*tagsOutput, error) {
		st, err := snap.Store()
		if err != nil {
			return nil, huma.Error500InternalServerError("Snapshot unavailable", err)
		}
		out := &tagsOutput{Body: []TagInfo{}}
		for _, tag := range st.Tags() {
			out.Body = append(out.Body, TagInfo{Tag: tag, Rows: st.Len(tag), Columns: st.Columns(tag)})
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-rows",
		Method:      http.MethodGet,
		Path:        "/tags/{tag}/rows",
		Summary:     "All rows of a tag",
	}, func(ctx context.Context, input *tagInput) (*tableOutput, error) {
		st, err := snap.Store()
		if err != nil {
			return nil, huma.Error500InternalServerError("Snapshot unavailable", err)
		}
		if st.Len(input.Tag) == 0 {
			return nil, huma.Error404NotFound(fmt.Sprintf("No tag %s", input.Tag))
		}
		out := &tableOutput{Body: TableInfo{Tag: input.Tag, Columns: st.Columns(input.Tag)}}
		for _, rr := range st.Rows(input.Tag) {
			out.Body.Rows = append(out.Body.Rows, RowInfo{Run: rr.Run, Features: rr.Row.Interface()})
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-row",
		Method:      http.MethodGet,
		Path:        "/tags/{tag}/rows/{run}",
		Summary:     "The row of one run",
	}, func(ctx context.Context, input *rowInput) (*rowOutput, error) {
		st, err := snap.Store()
		if err != nil {
			return nil, huma.Error500InternalServerError("Snapshot unavailable", err)
		}
		row, found := st.Row(input.Tag, input.Run)
		if !found {
			return nil, huma.Error404NotFound(fmt.Sprintf("No row for run %d in tag %s", input.Run, input.Tag))
		}
		return &rowOutput{Body: RowInfo{Run: input.Run, Features: row.Interface()}}, nil
	})

	mux.Handle("/metrics", promhttp.Handler())

	return authenticator.Wrap(mux, Realm)
}
