package server

import (
	"github.com/sjhuskey/copticqa/pkg/qa"
	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/schema"
)

type askRequest struct {
	Question string `json:"question"`
}

type searchRequest struct {
	Term string `json:"term"`
}

type answerResponse struct {
	RequestID string `json:"request_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Query     string `json:"query,omitempty"`
	// Published is false when a newer question superseded this one
	// before it finished.
	Published bool       `json:"published"`
	Columns   []string   `json:"columns,omitempty"`
	Rows      [][]string `json:"rows,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`
}

// maxResponseRows bounds the rows echoed back over HTTP; the full
// result stays server-side.
const maxResponseRows = 100

func newAnswerResponse(outcome *qa.Outcome, published bool, digest *schema.Digest, requestID string) *answerResponse {
	resp := &answerResponse{
		RequestID: requestID,
		Kind:      outcome.Kind.String(),
		Message:   outcome.Message(),
		Query:     outcome.Query,
		Published: published,
	}

	if outcome.Result == nil || outcome.Result.Status != qa.StatusPopulated {
		return resp
	}

	resp.Columns = outcome.Result.Variables
	rows := outcome.Result.Rows
	if len(rows) > maxResponseRows {
		rows = rows[:maxResponseRows]
		resp.Truncated = true
	}

	resp.Rows = make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(resp.Columns))
		for j, name := range resp.Columns {
			if term, ok := row[name]; ok {
				cells[j] = renderTerm(term, digest)
			}
		}
		resp.Rows[i] = cells
	}
	return resp
}

// renderTerm produces the display form of a term, compressing IRIs with
// the digest's prefix table.
func renderTerm(term rdf.Term, digest *schema.Digest) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return digest.QName(t.IRI)
	case *rdf.BlankNode:
		return "_:" + t.ID
	case *rdf.Literal:
		if t.Language != "" {
			return t.Value + " (@" + t.Language + ")"
		}
		return t.Value
	default:
		return term.String()
	}
}
