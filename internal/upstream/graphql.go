package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/you/chatvault/internal/core"
)

// GraphQLRequest is the standard GraphQL POST envelope.
type GraphQLRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// GraphQL posts q to endpoint and decodes the data member into out. A
// response carrying errors fails with the upstream status (500 when the
// transport reported success) and the first error message.
func (c *Client) GraphQL(ctx context.Context, p core.Provider, op, endpoint string, header http.Header, q GraphQLRequest, out any) error {
	resp, err := c.Do(ctx, Request{Provider: p, Op: op, Method: http.MethodPost, URL: endpoint, Header: header, Body: q})
	if err != nil {
		return err
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return core.Malformed(p, op, errors.Wrap(err, "decode graphql envelope"))
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		detail := c.T(ctx, "status.500")
		if len(msgs) > 0 {
			detail = strings.Join(msgs, "; ")
		}
		return core.Upstream(p, op, http.StatusInternalServerError, detail)
	}
	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return core.Malformed(p, op, errors.Wrap(err, "decode graphql data"))
	}
	return nil
}
