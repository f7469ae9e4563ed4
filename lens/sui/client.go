package sui

import (
	"context"
	"encoding/base64"

	lru "github.com/hashicorp/golang-lru"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mr-tron/base58"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/lens"
	"github.com/wormhole-foundation/suigov/ptb"
)

var log = logging.Logger("suigov/lens/sui")

const (
	requestWaitForLocalExecution = "WaitForLocalExecution"

	// most coins a transaction may pay gas with
	maxGasPayment = 255
	coinPageSize  = 50
)

// ErrNoSender is returned when a transaction is built by a client opened without a wallet key.
var ErrNoSender = xerrors.New("no wallet key configured")

var (
	_ lens.API       = (*Client)(nil)
	_ lens.DryRunner = (*Client)(nil)
)

// Client implements lens.API on top of a Sui full node.
type Client struct {
	node   *NodeStruct
	key    *Keypair
	budget uint64
	cache  *lru.ARCCache // initial shared version by object id
}

func NewClient(node *NodeStruct, key *Keypair, gasBudget uint64, cache *lru.ARCCache) *Client {
	return &Client{
		node:   node,
		key:    key,
		budget: gasBudget,
		cache:  cache,
	}
}

// Sender is the address transactions are sent and paid from.
func (c *Client) Sender() ptb.Address {
	return c.key.Address()
}

func (c *Client) GetObject(ctx context.Context, id ptb.ObjectID, opts lens.ObjectOptions) (*lens.Object, error) {
	resp, err := c.node.Internal.GetObject(ctx, id.String(), opts)
	if err != nil {
		return nil, xerrors.Errorf("get object %s: %w", id, err)
	}
	if resp == nil || resp.Data == nil {
		code := "no data"
		if resp != nil && resp.Error != nil {
			code = resp.Error.Code
		}
		return nil, xerrors.Errorf("object %s: %s: %w", id, code, lens.ErrObjectNotFound)
	}
	return resp.Data, nil
}

func (c *Client) GetTransaction(ctx context.Context, digest string, opts lens.ResponseOptions) (*lens.TransactionResponse, error) {
	resp, err := c.node.Internal.GetTransactionBlock(ctx, digest, opts)
	if err != nil {
		return nil, xerrors.Errorf("get transaction %s: %w", digest, err)
	}
	return resp, nil
}

func (c *Client) SignAndExecuteTransaction(ctx context.Context, tx *ptb.Transaction, opts lens.ResponseOptions) (*lens.TransactionResponse, error) {
	data, err := c.Resolve(ctx, tx)
	if err != nil {
		return nil, err
	}
	txBytes, err := data.Marshal()
	if err != nil {
		return nil, xerrors.Errorf("marshal transaction: %w", err)
	}
	sig := c.key.SignTransaction(txBytes)

	opts.ShowEffects = true
	log.Infow("executing transaction", "sender", data.Sender, "commands", tx.CommandNames(), "gasPrice", data.Gas.Price, "gasBudget", data.Gas.Budget)
	resp, err := c.node.Internal.ExecuteTransactionBlock(ctx,
		base64.StdEncoding.EncodeToString(txBytes),
		[]string{base64.StdEncoding.EncodeToString(sig)},
		opts,
		requestWaitForLocalExecution,
	)
	if err != nil {
		return nil, xerrors.Errorf("execute transaction: %s: %w", err, lens.ErrTransactionRejected)
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	log.Infow("transaction executed", "digest", resp.Digest)
	return resp, nil
}

// DryRunTransaction resolves and simulates tx. Nothing is signed or committed.
func (c *Client) DryRunTransaction(ctx context.Context, tx *ptb.Transaction) (*lens.TransactionResponse, error) {
	data, err := c.Resolve(ctx, tx)
	if err != nil {
		return nil, err
	}
	txBytes, err := data.Marshal()
	if err != nil {
		return nil, xerrors.Errorf("marshal transaction: %w", err)
	}
	resp, err := c.node.Internal.DryRunTransactionBlock(ctx, base64.StdEncoding.EncodeToString(txBytes))
	if err != nil {
		return nil, xerrors.Errorf("dry run transaction: %w", err)
	}
	return resp, resp.Err()
}

// Resolve turns tx into transaction data ready for signing: object inputs become
// shared or owned references, and gas is paid from the sender's coins at the
// reference gas price.
func (c *Client) Resolve(ctx context.Context, tx *ptb.Transaction) (*ptb.TransactionData, error) {
	if c.key == nil {
		return nil, ErrNoSender
	}
	if err := tx.Validate(); err != nil {
		return nil, xerrors.Errorf("validate transaction: %w", err)
	}

	// object inputs and the gas price are looked up concurrently, each lookup
	// writes only its own slot of inputs.
	inputs := make([]ptb.CallArg, len(tx.Inputs))
	used := make(map[ptb.ObjectID]struct{})
	var price lens.Uint64
	grp, grpCtx := errgroup.WithContext(ctx)
	for i, in := range tx.Inputs {
		i, in := i, in
		switch in.Kind {
		case ptb.InputPure:
			inputs[i] = ptb.CallArg{Pure: in.Pure}
		case ptb.InputObject:
			used[in.Object] = struct{}{}
			grp.Go(func() error {
				arg, err := c.resolveObject(grpCtx, in.Object, in.Mutable)
				if err != nil {
					return xerrors.Errorf("input %d: %w", i, err)
				}
				inputs[i] = arg
				return nil
			})
		}
	}
	grp.Go(func() error {
		var err error
		price, err = c.node.Internal.GetReferenceGasPrice(grpCtx)
		if err != nil {
			return xerrors.Errorf("get reference gas price: %w", err)
		}
		return nil
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	payment, err := c.selectGas(ctx, used)
	if err != nil {
		return nil, err
	}

	sender := c.key.Address()
	return &ptb.TransactionData{
		Sender:   sender,
		Inputs:   inputs,
		Commands: tx.Commands,
		Gas: ptb.GasData{
			Payment: payment,
			Owner:   sender,
			Price:   uint64(price),
			Budget:  c.budget,
		},
	}, nil
}

func (c *Client) resolveObject(ctx context.Context, id ptb.ObjectID, mutable bool) (ptb.CallArg, error) {
	if id == ptb.ClockObjectID {
		// the clock may only be read
		return sharedArg(id, ptb.ClockInitialSharedVersion, false), nil
	}
	if v, ok := c.cache.Get(id); ok {
		return sharedArg(id, v.(uint64), mutable), nil
	}

	obj, err := c.GetObject(ctx, id, lens.ObjectOptions{ShowOwner: true})
	if err != nil {
		return ptb.CallArg{}, err
	}
	if obj.Owner.IsShared() {
		version := uint64(*obj.Owner.InitialSharedVersion)
		c.cache.Add(id, version)
		return sharedArg(id, version, mutable), nil
	}

	digest, err := decodeDigest(obj.Digest)
	if err != nil {
		return ptb.CallArg{}, xerrors.Errorf("object %s: %w", id, err)
	}
	return ptb.CallArg{ImmOrOwned: &ptb.ObjectRef{ObjectID: id, Version: uint64(obj.Version), Digest: digest}}, nil
}

func (c *Client) selectGas(ctx context.Context, exclude map[ptb.ObjectID]struct{}) ([]ptb.ObjectRef, error) {
	owner := c.key.Address().String()
	limit := uint(coinPageSize)

	var (
		payment []ptb.ObjectRef
		total   uint64
		cursor  *string
	)
	for {
		page, err := c.node.Internal.GetCoins(ctx, owner, nil, cursor, &limit)
		if err != nil {
			return nil, xerrors.Errorf("get coins of %s: %w", owner, err)
		}
		for _, coin := range page.Data {
			id, err := ptb.ParseObjectID(coin.CoinObjectID)
			if err != nil {
				return nil, xerrors.Errorf("coin %q: %w", coin.CoinObjectID, err)
			}
			if _, skip := exclude[id]; skip {
				continue
			}
			digest, err := decodeDigest(coin.Digest)
			if err != nil {
				return nil, xerrors.Errorf("coin %s: %w", id, err)
			}
			payment = append(payment, ptb.ObjectRef{ObjectID: id, Version: uint64(coin.Version), Digest: digest})
			total += uint64(coin.Balance)
			if total >= c.budget {
				return payment, nil
			}
			if len(payment) == maxGasPayment {
				return nil, xerrors.Errorf("%d coins of %s hold %d, below gas budget %d", maxGasPayment, owner, total, c.budget)
			}
		}
		if cursor = page.Cursor(); cursor == nil {
			break
		}
	}
	return nil, xerrors.Errorf("balance %d of %s is below gas budget %d", total, owner, c.budget)
}

func sharedArg(id ptb.ObjectID, version uint64, mutable bool) ptb.CallArg {
	return ptb.CallArg{Shared: &ptb.SharedObject{ObjectID: id, InitialSharedVersion: version, Mutable: mutable}}
}

func decodeDigest(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return out, xerrors.Errorf("decode digest %q: %w", s, err)
	}
	if len(raw) != len(out) {
		return out, xerrors.Errorf("digest %q is %d bytes", s, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
