package sui

import (
	"context"
	"net/http"

	"github.com/filecoin-project/go-jsonrpc"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/lens"
	"github.com/wormhole-foundation/suigov/metrics"
)

type APIOpener struct {
	addr   string
	header http.Header
	key    *Keypair
	budget uint64
	cache  *lru.ARCCache // cache shared across all instances of the api
}

// NewAPIOpener returns an opener of clients for the node at addr. key may be nil
// for read only use.
func NewAPIOpener(addr string, key *Keypair, gasBudget uint64, cacheSize int) (*APIOpener, lens.APICloser, error) {
	ac, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, nil, xerrors.Errorf("new arc cache: %w", err)
	}

	o := &APIOpener{
		addr:   addr,
		header: http.Header{},
		key:    key,
		budget: gasBudget,
		cache:  ac,
	}

	return o, lens.APICloser(func() {}), nil
}

func (o *APIOpener) Open(ctx context.Context) (lens.API, lens.APICloser, error) {
	node, closer, err := NewNodeRPC(ctx, o.addr, o.header)
	if err != nil {
		return nil, nil, xerrors.Errorf("dial %s: %w", o.addr, err)
	}
	metrics.Proxy(&node.Internal)
	return NewClient(node, o.key, o.budget, o.cache), lens.APICloser(closer), nil
}

func NewNodeRPC(ctx context.Context, addr string, requestHeader http.Header) (*NodeStruct, jsonrpc.ClientCloser, error) {
	var res NodeStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, "Sui",
		[]interface{}{
			&res.Internal,
		},
		requestHeader,
	)
	return &res, closer, err
}
