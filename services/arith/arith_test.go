package arith

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/rpcwrap/jsonrpc"
)

func TestBatch(t *testing.T) {
	w, err := jsonrpc.NewWrapper(New())
	require.NoError(t, err)

	reply, err := w.Process(context.Background(), []byte(`[
		{"jsonrpc":"2.0","method":"add","params":[1,2,3,4],"id":"1"},
		{"jsonrpc":"2.0","method":"subtract","params":{"minuend":42,"subtrahend":23},"id":2},
		{"jsonrpc":"2.0","method":"add","params":[1]},
		{"jsonrpc":"2.0","method":"inexistent","params":[1,2,4],"id":"3"},
		{"jsonrpc":"2.0","method":"subtract","params":{"minuend":42},"id":"4"},
		{"jsonrpc":"2.0","method":"subtract","params":[42,23]},
		{"jsonrpc":"2.0","id":"4"}
	]`))
	require.NoError(t, err)
	b, err := json.Marshal(reply)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"jsonrpc":"2.0","result":10,"id":"1"},
		{"jsonrpc":"2.0","result":19,"id":2},
		{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found"},"id":"3"},
		{"jsonrpc":"2.0","error":{"code":-32000,"message":"Server error","data":"ERR_NAN"},"id":"4"},
		{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid request"},"id":"4"}
	]`, string(b))
}

func TestAdd(t *testing.T) {
	assert.Equal(t, 0.0, Add())
	assert.Equal(t, 3.5, Add(1, 2.5))
}

func TestSubtract(t *testing.T) {
	a, b := 5.0, 7.0
	got, err := Subtract(Operands{Minuend: &a, Subtrahend: &b})
	require.NoError(t, err)
	assert.Equal(t, -2.0, got)

	_, err = Subtract(Operands{Subtrahend: &b})
	assert.ErrorIs(t, err, ErrNaN)
}
