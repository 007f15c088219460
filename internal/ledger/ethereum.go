package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pramaanvault/certvault/internal/canonical"
	"go.uber.org/zap"
)

// registryABI is the certificate registry contract surface: an atomic batch
// append and a read-only point query keyed by certificate hash.
const registryABI = `[
  {"inputs":[{"internalType":"bytes32[]","name":"hashes","type":"bytes32[]"}],
   "name":"addBatch","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"internalType":"bytes32","name":"certHash","type":"bytes32"}],
   "name":"verifyCertificate",
   "outputs":[{"internalType":"bool","name":"exists","type":"bool"},
              {"internalType":"uint256","name":"timestamp","type":"uint256"},
              {"internalType":"address","name":"issuer","type":"address"}],
   "stateMutability":"view","type":"function"}
]`

// defaultConfirmTimeout bounds the wait for a submitted transaction to be
// mined when the caller's context carries no earlier deadline.
const defaultConfirmTimeout = 90 * time.Second

// EthConfig holds the connection parameters of an EVM-backed ledger.
type EthConfig struct {
	// RPCURL is the JSON-RPC endpoint of the chain node.
	RPCURL string
	// ContractAddress is the deployed registry contract, hex-encoded.
	ContractAddress string
	// SignerKeys are hex-encoded ECDSA private keys authorized to submit
	// batches. The first key is the default submitting identity.
	SignerKeys []string
	// ConfirmTimeout overrides defaultConfirmTimeout when non-zero.
	ConfirmTimeout time.Duration
}

// EthClient is the Client implementation backed by a registry contract on an
// EVM chain. It holds one shared node connection; all methods are safe for
// concurrent use. Concurrent AppendBatch calls from the same signer are
// serialized by the chain's own nonce ordering, which is acceptable.
type EthClient struct {
	eth      *ethclient.Client
	abi      abi.ABI
	contract common.Address
	chainID  *big.Int
	signers  []Identity
	keys     map[Identity]*ecdsa.PrivateKey
	confirm  time.Duration
	logger   *zap.Logger
}

// DialEth connects to the chain node, resolves the chain ID, and checks that
// contract code is actually deployed at the configured address. Any of these
// failing means the process should not come up, so callers run this at
// startup and treat an error as fatal.
func DialEth(ctx context.Context, cfg EthConfig, logger *zap.Logger) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("ledger RPC URL is not configured")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	if len(cfg.SignerKeys) == 0 {
		return nil, errors.New("no signer keys configured")
	}

	parsedABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry ABI: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger node %s: %w", cfg.RPCURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("query chain ID: %w", err)
	}

	contract := common.HexToAddress(cfg.ContractAddress)
	code, err := eth.CodeAt(ctx, contract, nil)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("query contract code: %w", err)
	}
	if len(code) == 0 {
		eth.Close()
		return nil, fmt.Errorf("no contract deployed at %s", contract.Hex())
	}

	keys := make(map[Identity]*ecdsa.PrivateKey, len(cfg.SignerKeys))
	signers := make([]Identity, 0, len(cfg.SignerKeys))
	for i, hexKey := range cfg.SignerKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("parse signer key %d: %w", i, err)
		}
		id := Identity(crypto.PubkeyToAddress(key.PublicKey).Hex())
		keys[id] = key
		signers = append(signers, id)
	}

	confirm := cfg.ConfirmTimeout
	if confirm == 0 {
		confirm = defaultConfirmTimeout
	}

	logger.Info("connected to certificate ledger",
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("contract", contract.Hex()),
		zap.String("chain_id", chainID.String()),
		zap.Int("signers", len(signers)),
	)

	return &EthClient{
		eth:      eth,
		abi:      parsedABI,
		contract: contract,
		chainID:  chainID,
		signers:  signers,
		keys:     keys,
		confirm:  confirm,
		logger:   logger,
	}, nil
}

// Signers implements Client. Signing keys are held locally, so listing them
// involves no node round trip; an unreachable node surfaces on the first
// estimate or lookup instead.
func (c *EthClient) Signers(_ context.Context) ([]Identity, error) {
	out := make([]Identity, len(c.signers))
	copy(out, c.signers)
	return out, nil
}

// EstimateCost implements Client.
func (c *EthClient) EstimateCost(ctx context.Context, hashes []canonical.Hash, signer Identity) (CostUnits, error) {
	data, err := c.abi.Pack("addBatch", toBytes32(hashes))
	if err != nil {
		return 0, fmt.Errorf("estimate cost: pack addBatch: %w", err)
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: common.HexToAddress(string(signer)),
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		return 0, classify("estimate cost", err)
	}
	return CostUnits(gas), nil
}

// AppendBatch implements Client. It signs and submits one transaction
// carrying the whole batch, then blocks until the chain confirms or rejects
// it. The contract guarantees atomicity: a reverted transaction records
// nothing.
func (c *EthClient) AppendBatch(ctx context.Context, hashes []canonical.Hash, signer Identity, ceiling CostUnits, price UnitPrice) (*Confirmation, error) {
	key, ok := c.keys[signer]
	if !ok {
		return nil, fmt.Errorf("append batch: unknown signer %s: %w", signer, ErrRejected)
	}

	data, err := c.abi.Pack("addBatch", toBytes32(hashes))
	if err != nil {
		return nil, fmt.Errorf("append batch: pack addBatch: %w", err)
	}

	from := common.HexToAddress(string(signer))
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, classify("append batch: fetch nonce", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    big.NewInt(0),
		Gas:      uint64(ceiling),
		GasPrice: price.Wei(),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return nil, fmt.Errorf("append batch: sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, classify("append batch: send transaction", err)
	}

	c.logger.Info("batch submitted to ledger",
		zap.String("tx", signed.Hash().Hex()),
		zap.Int("hashes", len(hashes)),
		zap.Uint64("cost_ceiling", uint64(ceiling)),
	)

	waitCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.confirm)
		defer cancel()
	}

	receipt, err := bind.WaitMined(waitCtx, c.eth, signed)
	if err != nil {
		// The transaction may still land after this timeout; callers learn
		// the ground truth by re-querying Lookup on the submitted hashes.
		return nil, classify("append batch: await confirmation", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("append batch: transaction %s reverted: %w", signed.Hash().Hex(), ErrRejected)
	}

	return &Confirmation{
		TxID:         signed.Hash().Hex(),
		CostConsumed: CostUnits(receipt.GasUsed),
	}, nil
}

// Lookup implements Client via a read-only contract call.
func (c *EthClient) Lookup(ctx context.Context, hash canonical.Hash) (*Entry, error) {
	data, err := c.abi.Pack("verifyCertificate", [32]byte(hash))
	if err != nil {
		return nil, fmt.Errorf("lookup: pack verifyCertificate: %w", err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, classify("lookup", err)
	}

	values, err := c.abi.Unpack("verifyCertificate", raw)
	if err != nil {
		return nil, fmt.Errorf("lookup: unpack result: %w", err)
	}
	return entryFromOutputs(values)
}

// entryFromOutputs converts the unpacked verifyCertificate return values into
// an Entry. The contract returns (bool exists, uint256 timestamp, address
// issuer); any other shape means the configured address does not hold the
// expected registry contract.
func entryFromOutputs(values []interface{}) (*Entry, error) {
	if len(values) != 3 {
		return nil, fmt.Errorf("lookup: contract returned %d values, want 3", len(values))
	}
	exists, ok := values[0].(bool)
	if !ok {
		return nil, fmt.Errorf("lookup: exists flag has type %T, want bool", values[0])
	}
	if !exists {
		return &Entry{Exists: false}, nil
	}

	ts, ok := values[1].(*big.Int)
	if !ok || ts == nil {
		return nil, fmt.Errorf("lookup: timestamp has type %T, want *big.Int", values[1])
	}
	issuer, ok := values[2].(common.Address)
	if !ok {
		return nil, fmt.Errorf("lookup: issuer has type %T, want address", values[2])
	}

	return &Entry{
		Exists:    true,
		Timestamp: time.Unix(ts.Int64(), 0).UTC(),
		Issuer:    Identity(issuer.Hex()),
	}, nil
}

// Info implements Client.
func (c *EthClient) Info(_ context.Context) (*Info, error) {
	return &Info{
		ContractAddress: c.contract.Hex(),
		DefaultSigner:   c.signers[0],
		NetworkID:       c.chainID.String(),
	}, nil
}

// Close implements Client.
func (c *EthClient) Close() {
	c.eth.Close()
}

// toBytes32 converts hashes into the bytes32[] form the ABI encoder expects.
func toBytes32(hashes []canonical.Hash) [][32]byte {
	out := make([][32]byte, len(hashes))
	for i, h := range hashes {
		out[i] = h
	}
	return out
}

// classify maps a node error to the ledger error taxonomy: ledger-side
// refusals become ErrRejected, everything else (network failure, timeout)
// becomes ErrUnavailable.
func classify(op string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "execution reverted"),
		strings.Contains(msg, "intrinsic gas too low"),
		strings.Contains(msg, "exceeds block gas limit"),
		strings.Contains(msg, "underpriced"),
		strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%s: %s: %w", op, msg, ErrRejected)
	default:
		return fmt.Errorf("%s: %s: %w", op, msg, ErrUnavailable)
	}
}
