package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouteTable(t *testing.T) {
	tests := []struct {
		name      string
		routes    []testRoute
		wantErr   error
		wantSlots int
	}{
		{
			name:    "empty",
			routes:  nil,
			wantErr: ErrNoRoutes,
		},
		{
			name: "duplicate key",
			routes: []testRoute{
				NewRoute("/a", static("1")),
				NewRoute("/a", static("2")),
			},
			wantErr: ErrDuplicateRoute,
		},
		{
			name: "slots sum max(1, handlers)",
			routes: []testRoute{
				NewRoute("/three", static("A"), static("B"), static("C")),
				NewRoute[string, *echoRequest, string]("/none"),
				NewRoute("/one", static("X")),
			},
			wantSlots: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewRouteTable(tt.routes)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, table)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSlots, table.TotalSlots())
			assert.Equal(t, len(tt.routes), table.Len())
		})
	}
}

func TestRouteTable_DuplicateErrorNamesKey(t *testing.T) {
	_, err := NewRouteTable([]testRoute{
		NewRoute("/a", static("1")),
		NewRoute("/b", static("1")),
		NewRoute("/b", static("2")),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/b")
	assert.Contains(t, err.Error(), "routes[2]")
}

func TestRouteTable_Lookup(t *testing.T) {
	table, err := NewRouteTable([]testRoute{
		NewRoute("/b", static("B")),
		NewRoute("/a", static("A1"), static("A2")),
	})
	require.NoError(t, err)

	route, ok := table.Lookup("/a")
	require.True(t, ok)
	assert.Equal(t, "/a", route.Key)
	assert.Len(t, route.Handlers, 2)
	assert.Equal(t, 2, route.Slots())

	_, ok = table.Lookup("/missing")
	assert.False(t, ok)

	_, ok = table.Selector("/missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"/b", "/a"}, table.Keys())
}

func TestRouteTable_IsolatedFromCaller(t *testing.T) {
	handlers := []Handler[*echoRequest, string]{static("A"), static("B")}
	routes := []testRoute{NewRoute("/a", handlers...)}

	table, err := NewRouteTable(routes)
	require.NoError(t, err)

	handlers[0] = static("changed")
	keys := table.Keys()
	keys[0] = "/changed"

	route, _ := table.Lookup("/a")
	assert.Equal(t, "A", route.Handlers[0].Respond(nil))
	assert.Equal(t, []string{"/a"}, table.Keys())
}
