package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/rpcwrap/jsonrpc"
)

func newWrapper(t *testing.T, path string) *jsonrpc.Wrapper {
	t.Helper()
	w, err := jsonrpc.NewWrapper(New(path, nil), jsonrpc.WithCallbackMethods(CallbackMethods...))
	require.NoError(t, err)
	return w
}

func process(t *testing.T, w *jsonrpc.Wrapper, payload string) string {
	t.Helper()
	reply, err := w.Process(context.Background(), []byte(payload))
	require.NoError(t, err)
	if reply == nil {
		return ""
	}
	b, err := json.Marshal(reply)
	require.NoError(t, err)
	return string(b)
}

func TestStoreContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")
	w := newWrapper(t, path)

	assert.JSONEq(t, `{"jsonrpc":"2.0","result":null,"id":"1"}`,
		process(t, w, `{"jsonrpc":"2.0","method":"storeContent","params":["testing file write"],"id":"1"}`))
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":null,"id":"2"}`,
		process(t, w, `{"jsonrpc":"2.0","method":"storeContent","params":["second"],"id":"2"}`))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "testing file write\nsecond\n", string(b))
}

func TestStoreContentBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")
	w := newWrapper(t, path)

	process(t, w, `[
		{"jsonrpc":"2.0","method":"storeContent","params":["a"],"id":1},
		{"jsonrpc":"2.0","method":"storeContent","params":["b"],"id":2},
		{"jsonrpc":"2.0","method":"storeContent","params":["c"],"id":3}
	]`)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	assert.ElementsMatch(t, []string{"a", "b", "c"}, lines)
}

func TestStoreContentFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "journal.log")
	w := newWrapper(t, path)

	var resp jsonrpc.Response
	require.NoError(t, json.Unmarshal([]byte(process(t, w,
		`{"jsonrpc":"2.0","method":"storeContent","params":["x"],"id":1}`)), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeServerError, resp.Error.Code)
	assert.Contains(t, resp.Error.Data, "journal: open")
}

func TestGetFields(t *testing.T) {
	w := newWrapper(t, filepath.Join(t.TempDir(), "journal.log"))
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":[1,2,3],"id":"1"}`,
		process(t, w, `{"jsonrpc":"2.0","method":"getFields","id":"1"}`))
}

func TestRequiresCallbackRegistration(t *testing.T) {
	w, err := jsonrpc.NewWrapper(New(filepath.Join(t.TempDir(), "journal.log"), nil))
	require.NoError(t, err)
	// Without the callback option the callback parameter cannot be decoded
	// from params, so the method is called with a nil func and panics.
	var resp jsonrpc.Response
	require.NoError(t, json.Unmarshal([]byte(process(t, w,
		`{"jsonrpc":"2.0","method":"getFields","id":1}`)), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeServerError, resp.Error.Code)
}
