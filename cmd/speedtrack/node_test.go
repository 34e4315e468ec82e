package main

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/speedtrackorg/libspeedtrack-go/ledger"
)

const (
	testUser      = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	localhostID   = 31337
	unknownMethod = -32601
)

// node is a JSON-RPC endpoint serving one wallet's facts from the Speed
// Track contract.
type node struct {
	abi abi.ABI
	url string

	mu        sync.Mutex
	chainID   uint64
	id        uint64
	activated bool
	level     uint8
	profile   bool
	down      bool
}

func startNode(t *testing.T) *node {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(ledger.SpeedTrackABI))
	require.NoError(t, err)
	n := &node{abi: parsed, chainID: localhostID}
	server := httptest.NewServer(http.HandlerFunc(n.handle))
	t.Cleanup(server.Close)
	n.url = server.URL
	return n
}

func (n *node) update(fn func(n *node)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fn(n)
}

func (n *node) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	switch {
	case req.Method == "eth_chainId":
		resp["result"] = hexutil.EncodeUint64(n.chainID)
	case req.Method == "eth_call" && n.down:
		resp["error"] = map[string]interface{}{"code": -32000, "message": "header not found"}
	case req.Method == "eth_call":
		result, err := n.call(req.Params)
		if err != nil {
			resp["error"] = map[string]interface{}{"code": -32000, "message": err.Error()}
		} else {
			resp["result"] = result
		}
	default:
		resp["error"] = map[string]interface{}{"code": unknownMethod, "message": "method not found"}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *node) call(params []json.RawMessage) (string, error) {
	var msg struct {
		Input hexutil.Bytes `json:"input"`
		Data  hexutil.Bytes `json:"data"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params[0], &msg); err != nil {
			return "", err
		}
	}
	data := msg.Input
	if len(data) == 0 {
		data = msg.Data
	}
	if len(data) < 4 {
		return "", errShortCalldata
	}
	method, err := n.abi.MethodById(data[:4])
	if err != nil {
		return "", err
	}

	var values []interface{}
	switch method.Name {
	case "getRegistrationId":
		values = []interface{}{new(big.Int).SetUint64(n.id)}
	case "getActivationStatus":
		values = []interface{}{n.activated, n.level}
	case "getProfileCompletion":
		values = []interface{}{n.profile}
	case "getActivationLevel":
		values = []interface{}{big.NewInt(50), big.NewInt(500)}
	}
	packed, err := method.Outputs.Pack(values...)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(packed), nil
}

var errShortCalldata = errors.New("calldata too short")

// writeConfig points a config file at n with a bolt cache and fast timings.
func writeConfig(t *testing.T, n *node) string {
	t.Helper()
	for _, k := range []string{"SPEEDTRACK_RPC_URL", "SPEEDTRACK_FALLBACK_RPC_URL", "SPEEDTRACK_CONTRACT", "SPEEDTRACK_CHAIN_ID"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	content := "data_dir: " + dir + "\n" +
		"network: localhost\n" +
		"rpc_url: " + n.url + "\n" +
		"contract_address: " + testContract + "\n" +
		"listen: 127.0.0.1:1\n" +
		"log_level: error\n" +
		"cache: bolt\n" +
		"read_timeout: 2s\n" +
		"retry_delay: 1ms\n" +
		"poll_interval: 20ms\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
