// Package rpc is the lazy state cache's upstream collaborator (spec.md §6):
// a thin client over the Ethereum JSON-RPC surface the cache needs to fill
// in a miss (eth_getStorageAt, eth_getCode, eth_getBalance,
// eth_getTransactionCount) plus the block-identification and call-forwarding
// methods (eth_getBlockByNumber, eth_chainId, eth_call) a transaction
// envelope needs before it can run at all. It does not reimplement
// JSON-RPC transport — it wraps go-ethereum's own rpc.Client, which already
// speaks JSON-RPC 2.0 over HTTP/WS/IPC.
package rpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// BlockRef pins a fetch to one historical point: either an exact block hash
// or a number/tag ("latest", "pending", "earliest"). The zero value means
// "latest".
type BlockRef struct {
	hash   *common.Hash
	number *big.Int
	tag    string
}

// Latest refers to the chain head at call time.
func Latest() BlockRef { return BlockRef{tag: "latest"} }

// Pending refers to the next block being built.
func Pending() BlockRef { return BlockRef{tag: "pending"} }

// ByNumber pins a fetch to an exact block height.
func ByNumber(n *big.Int) BlockRef { return BlockRef{number: n} }

// ByHash pins a fetch to an exact block, identified by its hash. Used when a
// caller needs every read in a transaction to observe one immutable point
// even if the chain reorganizes between calls.
func ByHash(h common.Hash) BlockRef { return BlockRef{hash: &h} }

// String renders the reference the way eth_getBlockByNumber and friends
// expect their blockNumber parameter.
func (b BlockRef) String() string {
	switch {
	case b.hash != nil:
		return b.hash.Hex()
	case b.number != nil:
		return hexutil.EncodeBig(b.number)
	case b.tag != "":
		return b.tag
	default:
		return "latest"
	}
}

// param is what gets marshalled as the trailing "block parameter" argument
// of eth_getStorageAt/eth_getBalance/eth_getTransactionCount/eth_getCode. A
// block hash is wrapped per EIP-1898 so the node honors it as an exact
// pin rather than trying to parse it as a number.
func (b BlockRef) param() interface{} {
	if b.hash != nil {
		return map[string]interface{}{"blockHash": *b.hash}
	}
	if b.number != nil {
		return hexutil.EncodeBig(b.number)
	}
	if b.tag != "" {
		return b.tag
	}
	return "latest"
}

// Client is the upstream JSON-RPC collaborator. It is safe for concurrent
// use by multiple Cache instances, though any one Cache drives it
// sequentially per spec.md §5.
type Client struct {
	rpc *gethrpc.Client
}

// Dial opens a JSON-RPC connection. url may be http(s), ws(s), or a local
// IPC path — whatever go-ethereum's own client supports.
func Dial(url string) (*Client, error) {
	c, err := gethrpc.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", url, err)
	}
	return &Client{rpc: c}, nil
}

// NewClient wraps an already-constructed go-ethereum rpc.Client, letting
// callers configure auth headers, custom dialers, etc. before handing the
// connection to the cache.
func NewClient(c *gethrpc.Client) *Client { return &Client{rpc: c} }

// Close releases the underlying connection.
func (c *Client) Close() { c.rpc.Close() }

// GetStorageAt fetches one storage slot as of the given block.
func (c *Client) GetStorageAt(ctx context.Context, addr common.Address, key common.Hash, block BlockRef) (common.Hash, error) {
	var result common.Hash
	if err := c.rpc.CallContext(ctx, &result, "eth_getStorageAt", addr, key, block.param()); err != nil {
		log.Warn("upstream fetch failed", "method", "eth_getStorageAt", "address", addr, "key", key, "err", err)
		return common.Hash{}, fmt.Errorf("rpc: eth_getStorageAt(%s, %s): %w", addr, key, err)
	}
	return result, nil
}

// GetCode fetches an account's runtime bytecode as of the given block.
func (c *Client) GetCode(ctx context.Context, addr common.Address, block BlockRef) ([]byte, error) {
	var result hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &result, "eth_getCode", addr, block.param()); err != nil {
		log.Warn("upstream fetch failed", "method", "eth_getCode", "address", addr, "err", err)
		return nil, fmt.Errorf("rpc: eth_getCode(%s): %w", addr, err)
	}
	return []byte(result), nil
}

// GetBalance fetches an account's wei balance as of the given block.
func (c *Client) GetBalance(ctx context.Context, addr common.Address, block BlockRef) (*big.Int, error) {
	var result hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "eth_getBalance", addr, block.param()); err != nil {
		log.Warn("upstream fetch failed", "method", "eth_getBalance", "address", addr, "err", err)
		return nil, fmt.Errorf("rpc: eth_getBalance(%s): %w", addr, err)
	}
	return (*big.Int)(&result), nil
}

// GetNonce fetches an account's transaction count as of the given block.
func (c *Client) GetNonce(ctx context.Context, addr common.Address, block BlockRef) (uint64, error) {
	var result hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &result, "eth_getTransactionCount", addr, block.param()); err != nil {
		log.Warn("upstream fetch failed", "method", "eth_getTransactionCount", "address", addr, "err", err)
		return 0, fmt.Errorf("rpc: eth_getTransactionCount(%s): %w", addr, err)
	}
	return uint64(result), nil
}

// ChainID fetches the chain's EIP-155 identifier.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "eth_chainId"); err != nil {
		log.Warn("upstream fetch failed", "method", "eth_chainId", "err", err)
		return nil, fmt.Errorf("rpc: eth_chainId: %w", err)
	}
	return (*big.Int)(&result), nil
}

// BlockHeader is the subset of eth_getBlockByNumber's result the envelope
// needs to build a BlockContext (spec.md §3).
type BlockHeader struct {
	Number       *hexutil.Big    `json:"number"`
	Hash         common.Hash     `json:"hash"`
	Coinbase     common.Address  `json:"miner"`
	Time         hexutil.Uint64  `json:"timestamp"`
	GasLimit     hexutil.Uint64  `json:"gasLimit"`
	BaseFee      *hexutil.Big    `json:"baseFeePerGas"`
	Difficulty   *hexutil.Big    `json:"difficulty"`
	MixHash      common.Hash     `json:"mixHash"`
	BlobBaseFee  *hexutil.Big    `json:"excessBlobGas"`
}

// GetBlockHeader fetches a block's header fields, without its transaction
// bodies, by block reference.
func (c *Client) GetBlockHeader(ctx context.Context, block BlockRef) (*BlockHeader, error) {
	var result BlockHeader
	if err := c.rpc.CallContext(ctx, &result, "eth_getBlockByNumber", block.param(), false); err != nil {
		log.Warn("upstream fetch failed", "method", "eth_getBlockByNumber", "block", block, "err", err)
		return nil, fmt.Errorf("rpc: eth_getBlockByNumber(%s): %w", block, err)
	}
	return &result, nil
}

// CallMsg mirrors the parameter object eth_call accepts.
type CallMsg struct {
	From  common.Address  `json:"from,omitempty"`
	To    *common.Address `json:"to,omitempty"`
	Gas   hexutil.Uint64  `json:"gas,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// Call forwards a read-only eth_call to the upstream node, used by callers
// that want a reference result to cross-check a local run against (spec.md
// §6's external-interface listing of eth_call).
func (c *Client) Call(ctx context.Context, msg CallMsg, block BlockRef) ([]byte, error) {
	var result hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &result, "eth_call", msg, block.param()); err != nil {
		log.Warn("upstream call failed", "method", "eth_call", "to", msg.To, "err", err)
		return nil, fmt.Errorf("rpc: eth_call: %w", err)
	}
	return []byte(result), nil
}
