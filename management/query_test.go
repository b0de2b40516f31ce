package management

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Query(t *testing.T) {
	registry := newTestRegistry()
	c := newTestCache(t, 10)
	reg, err := registry.Register(c, "app", "users")
	require.NoError(t, err)
	c.Put(1, "a")
	c.Get(1)

	tests := []struct {
		name     string
		req      QueryRequest
		wantCode string
		check    func(t *testing.T, resp QueryResponse)
	}{
		{
			name: "single attribute",
			req:  QueryRequest{Namespace: "app", Name: "users", Attribute: "CacheHits"},
			check: func(t *testing.T, resp QueryResponse) {
				assert.Equal(t, uint64(1), resp.Value)
				assert.Equal(t, reg.ID(), resp.ID)
			},
		},
		{
			name: "all attributes",
			req:  QueryRequest{Namespace: "app", Name: "users"},
			check: func(t *testing.T, resp QueryResponse) {
				assert.Len(t, resp.Attributes, len(AttributeNames()))
				assert.Equal(t, 100.0, resp.Attributes["CacheHitPercentage"])
			},
		},
		{
			name:     "unknown instance",
			req:      QueryRequest{Namespace: "app", Name: "orders", Attribute: "CacheHits"},
			wantCode: CodeNotFound,
		},
		{
			name:     "unknown attribute",
			req:      QueryRequest{Namespace: "app", Name: "users", Attribute: "Nope"},
			wantCode: CodeUnknownAttribute,
		},
		{
			name:     "missing namespace",
			req:      QueryRequest{Name: "users"},
			wantCode: CodeInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := registry.Query(tt.req)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantCode == "", resp.OK())
			if tt.wantCode != "" {
				assert.NotEmpty(t, resp.Error)
			}
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestQueryResponse_JSON(t *testing.T) {
	registry := newTestRegistry()
	_, err := registry.Register(newTestCache(t, 10), "app", "users")
	require.NoError(t, err)

	data, err := json.Marshal(registry.Query(QueryRequest{Namespace: "app", Name: "users", Attribute: "CacheGets"}))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, map[string]any{"namespace": "app", "name": "users"}, decoded["key"])
	assert.Equal(t, "CacheGets", decoded["attribute"])
	assert.NotContains(t, decoded, "code")
}
