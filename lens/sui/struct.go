package sui

import (
	"context"
	"encoding/json"

	"github.com/wormhole-foundation/suigov/lens"
)

// NodeStruct is a JSON-RPC client of a Sui full node. The method table is filled
// by jsonrpc.NewMergeClient, method names come from the rpc_method tags.
type NodeStruct struct {
	Internal struct {
		GetObject               func(ctx context.Context, id string, opts lens.ObjectOptions) (*ObjectResponse, error)                                                           `rpc_method:"sui_getObject"`
		GetCoins                func(ctx context.Context, owner string, coinType *string, cursor *string, limit *uint) (*CoinPage, error)                                        `rpc_method:"suix_getCoins"`
		GetReferenceGasPrice    func(ctx context.Context) (lens.Uint64, error)                                                                                                   `rpc_method:"suix_getReferenceGasPrice"`
		ExecuteTransactionBlock func(ctx context.Context, txBytes string, signatures []string, opts lens.ResponseOptions, requestType string) (*lens.TransactionResponse, error) `rpc_method:"sui_executeTransactionBlock"`
		GetTransactionBlock     func(ctx context.Context, digest string, opts lens.ResponseOptions) (*lens.TransactionResponse, error)                                           `rpc_method:"sui_getTransactionBlock"`
		DryRunTransactionBlock  func(ctx context.Context, txBytes string) (*lens.TransactionResponse, error)                                                                     `rpc_method:"sui_dryRunTransactionBlock"`
	}
}

type ObjectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id,omitempty"`
}

type ObjectResponse struct {
	Data  *lens.Object `json:"data,omitempty"`
	Error *ObjectError `json:"error,omitempty"`
}

type Coin struct {
	CoinType     string      `json:"coinType"`
	CoinObjectID string      `json:"coinObjectId"`
	Version      lens.Uint64 `json:"version"`
	Digest       string      `json:"digest"`
	Balance      lens.Uint64 `json:"balance"`
}

type CoinPage struct {
	Data        []Coin          `json:"data"`
	NextCursor  json.RawMessage `json:"nextCursor,omitempty"`
	HasNextPage bool            `json:"hasNextPage"`
}

// Cursor returns the cursor of the next page, nil when there is none.
func (p *CoinPage) Cursor() *string {
	if !p.HasNextPage || len(p.NextCursor) == 0 {
		return nil
	}
	var c string
	if err := json.Unmarshal(p.NextCursor, &c); err != nil || c == "" {
		return nil
	}
	return &c
}
