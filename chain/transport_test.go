package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcRequest mirrors the minimal JSON-RPC 2.0 envelope go-ethereum's
// ethclient sends for eth_blockNumber.
type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

func newFakeRPCServer(t *testing.T, blockHex string, failFirstN int) *httptest.Server {
	calls := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if calls <= failFirstN {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		switch req.Method {
		case "eth_blockNumber":
			resp["result"] = blockHex
		case "eth_chainId":
			resp["result"] = "0x1"
		default:
			resp["result"] = nil
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestLatestBlock_FirstEndpointSucceeds(t *testing.T) {
	srv := newFakeRPCServer(t, "0x2a", 0)
	defer srv.Close()

	tr, err := Dial(context.Background(), []Endpoint{{HTTPURL: srv.URL}}, log.Root())
	require.NoError(t, err)
	defer tr.Close()

	head, err := tr.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), head)
}

func TestLatestBlock_FallsBackOnFailure(t *testing.T) {
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badSrv.Close()
	goodSrv := newFakeRPCServer(t, "0x64", 0)
	defer goodSrv.Close()

	tr, err := Dial(context.Background(), []Endpoint{{HTTPURL: badSrv.URL}, {HTTPURL: goodSrv.URL}}, log.Root())
	require.NoError(t, err)
	defer tr.Close()

	head, err := tr.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), head)
}

func TestDial_RejectsEmptyEndpoints(t *testing.T) {
	_, err := Dial(context.Background(), nil, log.Root())
	assert.Error(t, err)
}
