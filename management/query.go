package management

import (
	stderrors "errors"

	"github.com/c360/cachestats/errors"
)

// Error codes carried by QueryResponse.
const (
	CodeNotFound         = "not_found"
	CodeUnknownAttribute = "unknown_attribute"
	CodeInvalid          = "invalid_request"
)

// QueryRequest asks for one attribute, or all of them when Attribute is empty.
type QueryRequest struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Attribute string `json:"attribute,omitempty"`
}

// QueryResponse is the transport-neutral answer to a QueryRequest.
type QueryResponse struct {
	Key        Key            `json:"key"`
	ID         string         `json:"id,omitempty"`
	Attribute  string         `json:"attribute,omitempty"`
	Value      any            `json:"value,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Code       string         `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// OK reports whether the query succeeded.
func (q QueryResponse) OK() bool {
	return q.Code == ""
}

// Query answers a request against the registry.
func (r *Registry) Query(req QueryRequest) QueryResponse {
	key := Key{Namespace: req.Namespace, Name: req.Name}
	resp := QueryResponse{Key: key, Attribute: req.Attribute}

	if err := key.validate(); err != nil {
		return resp.fail(errors.WrapInvalid(err, "Registry", "Query", "validate key"))
	}

	view, ok := r.Lookup(req.Namespace, req.Name)
	if !ok {
		return resp.fail(errors.WrapTransient(errors.ErrNotFound, "Registry", "Query",
			"lookup "+key.String()))
	}
	resp.ID = view.ID()

	if req.Attribute == "" {
		values, err := view.Attributes()
		if err != nil {
			return resp.fail(err)
		}
		resp.Attributes = values
		return resp
	}

	value, err := view.Attribute(req.Attribute)
	if err != nil {
		return resp.fail(err)
	}
	resp.Value = value
	return resp
}

func (q QueryResponse) fail(err error) QueryResponse {
	q.Code = ErrorCode(err)
	q.Error = err.Error()
	return q
}

// ErrorCode maps a registry or view error to its response code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, errors.ErrNotFound):
		return CodeNotFound
	case stderrors.Is(err, errors.ErrUnknownAttribute):
		return CodeUnknownAttribute
	default:
		return CodeInvalid
	}
}
