package stream

import (
	"encoding/base64"
	"net/http"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
	"go.uber.org/zap"
)

// Client fetches blocks from a bitcoin node over JSON RPC. Typed calls go
// through the btcd rpcclient; hash prefetching uses a raw JSON RPC client
// because rpcclient cannot batch requests.
type Client struct {
	rpcClient  *rpcclient.Client
	jsonClient jsonrpc.RPCClient
	logger     *zap.Logger
}

// newBitcoinClient creates a new raw Bitcoin JSON RPC client
func newBitcoinClient(httpClient *http.Client, targetURL string, username, password string) jsonrpc.RPCClient {
	targetURL = "http://" + targetURL //hack
	headers := make(map[string]string)
	if username != "" || password != "" {
		headers["Authorization"] = "Basic " + basicAuth(username, password)
	}

	rpcOpts := jsonrpc.RPCClientOpts{
		CustomHeaders: headers,
		HTTPClient:    httpClient,
	}

	return jsonrpc.NewClientWithOpts(targetURL, &rpcOpts)
}

// basicAuth converts username and password to base64-encoded string
// that can be used in `Authorization` header with `Basic` prefix
// see https://golang.org/pkg/net/http/#Request.SetBasicAuth
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}

// NewClient connects to a bitcoin node RPC endpoint.
func NewClient(btcRPCURL string, btcRPCUser string, btcRPCPassword string, logger *zap.Logger) (*Client, error) {
	// Connect to bitcoin core RPC server using HTTP POST mode.
	connCfg := &rpcclient.ConnConfig{
		Host:         btcRPCURL,
		User:         btcRPCUser,
		Pass:         btcRPCPassword,
		HTTPPostMode: true, // Bitcoin core only supports HTTP POST mode
		DisableTLS:   true, // Bitcoin core does not provide TLS by default
	}

	// Notice the notification parameter is nil since notifications are
	// not supported in HTTP POST mode.
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create bitcoin RPC client")
	}

	httpClient := &http.Client{
		Transport: &http.Transport{},
	}

	return &Client{
		rpcClient:  client,
		jsonClient: newBitcoinClient(httpClient, btcRPCURL, btcRPCUser, btcRPCPassword),
		logger:     logger,
	}, nil
}

// BestHeight returns the height of the chain tip.
func (c *Client) BestHeight() (uint32, error) {
	count, err := c.rpcClient.GetBlockCount()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get block count")
	}

	return uint32(count), nil
}

// BlockHashes fetches the block hashes for the height range [from, to] in
// a single batched getblockhash call.
func (c *Client) BlockHashes(from, to uint32) ([]*chainhash.Hash, error) {
	requests := make(jsonrpc.RPCRequests, 0, to-from+1)
	for height := from; height <= to; height++ {
		requests = append(requests, jsonrpc.NewRequest("getblockhash", height))
	}

	responses, err := c.jsonClient.CallBatch(requests)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to batch getblockhash for heights %d-%d", from, to)
	}
	if responses.HasError() {
		return nil, errors.Errorf("getblockhash batch for heights %d-%d returned errors", from, to)
	}

	hashes := make([]*chainhash.Hash, 0, to-from+1)
	for i := range requests {
		response := responses.GetByID(requests[i].ID)
		if response == nil {
			return nil, errors.Errorf("missing getblockhash response for height %d", from+uint32(i))
		}

		encoded, err := response.GetString()
		if err != nil {
			return nil, errors.Wrapf(err, "bad getblockhash response for height %d", from+uint32(i))
		}

		hash, err := chainhash.NewHashFromStr(encoded)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid block hash %s", encoded)
		}

		hashes = append(hashes, hash)
	}

	return hashes, nil
}

// Block fetches the full block for the given hash.
func (c *Client) Block(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	block, err := c.rpcClient.GetBlock(hash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get block %s", hash)
	}

	return block, nil
}

// Close shuts down the underlying RPC client.
func (c *Client) Close() {
	c.rpcClient.Shutdown()
}
