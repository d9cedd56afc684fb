package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	codec "github.com/hanpama/fetchgraph/internal/codec"
)

// requestError rejects a request before execution.
type requestError struct {
	status  int
	message string
}

func badRequest(message string) *requestError {
	return &requestError{status: http.StatusBadRequest, message: message}
}

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

type parsedRequest struct {
	single GraphQLRequest
	batch  []GraphQLRequest
	// body is the raw request body, kept for text passthrough.
	body []byte
}

// parseRequest accepts GET with URL parameters, POST with a JSON body (single
// or batch), and POST with a text/* body when the operation is given in the
// URL.
func parseRequest(r *http.Request, maxBody int64) (parsedRequest, *requestError) {
	if r.Method == http.MethodGet {
		req, err := fromQuery(r.URL.Query())
		return parsedRequest{single: req}, err
	}

	ct := codec.MediaType(r.Header.Get("Content-Type"))
	switch {
	case ct == "" || ct == codec.JSON:
		body, err := readBody(r, maxBody)
		if err != nil {
			return parsedRequest{}, err
		}
		if len(body) > 0 && body[0] == '[' {
			var arr []GraphQLRequest
			if err := json.Unmarshal(body, &arr); err != nil {
				return parsedRequest{}, badRequest("invalid JSON")
			}
			if len(arr) == 0 {
				return parsedRequest{}, badRequest("empty batch")
			}
			return parsedRequest{batch: arr, body: body}, nil
		}
		var req GraphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return parsedRequest{}, badRequest("invalid JSON")
		}
		if req.Query == "" {
			return parsedRequest{}, badRequest("missing 'query'")
		}
		if req.Variables == nil {
			req.Variables = map[string]any{}
		}
		return parsedRequest{single: req, body: body}, nil

	case codec.IsText(ct):
		req, qerr := fromQuery(r.URL.Query())
		if qerr != nil {
			return parsedRequest{}, qerr
		}
		body, err := readBody(r, maxBody)
		if err != nil {
			return parsedRequest{}, err
		}
		return parsedRequest{single: req, body: body}, nil
	}

	return parsedRequest{}, &requestError{status: http.StatusUnsupportedMediaType, message: "unsupported Content-Type"}
}

func fromQuery(q url.Values) (GraphQLRequest, *requestError) {
	query := q.Get("query")
	if query == "" {
		return GraphQLRequest{}, badRequest("missing 'query'")
	}
	vars := map[string]any{}
	if v := q.Get("variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &vars); err != nil {
			return GraphQLRequest{}, badRequest("invalid 'variables' JSON")
		}
	}
	return GraphQLRequest{Query: query, Variables: vars, OperationName: q.Get("operationName")}, nil
}

func readBody(r *http.Request, maxBody int64) ([]byte, *requestError) {
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, badRequest("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: "body too large"}
	}
	return body, nil
}
