package natsquery

import (
	"context"
	"encoding/json"

	"github.com/c360/cachestats/errors"
	"github.com/c360/cachestats/management"
)

// AttributeSubject returns the attribute query subject for prefix
func AttributeSubject(prefix string) string {
	return prefix + ".attr"
}

// KeysSubject returns the key listing subject for prefix
func KeysSubject(prefix string) string {
	return prefix + ".keys"
}

// Query sends an attribute query to a responder under prefix. Query failures
// reported by the responder come back in the response Code, not as an error.
func Query(ctx context.Context, client Requester, prefix string, req management.QueryRequest) (management.QueryResponse, error) {
	var resp management.QueryResponse

	data, err := json.Marshal(req)
	if err != nil {
		return resp, errors.WrapInvalid(err, "natsquery", "Query", "encode request")
	}

	reply, err := client.Request(ctx, AttributeSubject(prefix), data)
	if err != nil {
		return resp, errors.WrapTransient(err, "natsquery", "Query", "request "+AttributeSubject(prefix))
	}

	if err := json.Unmarshal(reply, &resp); err != nil {
		return resp, errors.WrapInvalid(err, "natsquery", "Query", "decode reply")
	}
	return resp, nil
}

// Keys lists the keys registered with a responder under prefix
func Keys(ctx context.Context, client Requester, prefix string) ([]management.Key, error) {
	reply, err := client.Request(ctx, KeysSubject(prefix), nil)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsquery", "Keys", "request "+KeysSubject(prefix))
	}

	var resp KeysResponse
	if err := json.Unmarshal(reply, &resp); err != nil {
		return nil, errors.WrapInvalid(err, "natsquery", "Keys", "decode reply")
	}
	return resp.Keys, nil
}
