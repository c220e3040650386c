package client

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
	cmn "github.com/tendermint/tendermint/libs/common"
	rpcclient "github.com/tendermint/tendermint/rpc/client"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/coin"
	"github.com/iov-one/splitter/distributor"
	"github.com/iov-one/splitter/errors"
)

// fakeConn implements the parts of the tendermint client interface that
// the boundary client uses. Everything else panics.
type fakeConn struct {
	rpcclient.Client

	broadcastResp *ctypes.ResultBroadcastTxCommit
	broadcastErr  error
	queryResp     abci.ResponseQuery
	queryErr      error

	txs     []tmtypes.Tx
	queries []string
}

func (f *fakeConn) BroadcastTxCommit(tx tmtypes.Tx) (*ctypes.ResultBroadcastTxCommit, error) {
	f.txs = append(f.txs, tx)
	if f.broadcastErr != nil {
		return nil, f.broadcastErr
	}
	if f.broadcastResp != nil {
		return f.broadcastResp, nil
	}
	return &ctypes.ResultBroadcastTxCommit{}, nil
}

func (f *fakeConn) ABCIQuery(path string, data cmn.HexBytes) (*ctypes.ResultABCIQuery, error) {
	f.queries = append(f.queries, path)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &ctypes.ResultABCIQuery{Response: f.queryResp}, nil
}

func TestSubmitInstructionsAsSingleTransaction(t *testing.T) {
	conn := &fakeConn{}
	c := NewClient(conn)

	instructions := []distributor.Instruction{
		{Recipient: splitter.NewAddress([]byte("alice")), Amount: coin.NewCoin(25, "IOV")},
		{Recipient: splitter.NewAddress([]byte("bobby")), Amount: coin.NewCoin(75, "IOV")},
	}
	require.NoError(t, c.SubmitInstructions(context.Background(), instructions))
	require.Len(t, conn.txs, 1)

	var tx boundaryTx
	require.NoError(t, json.Unmarshal(conn.txs[0], &tx))
	require.Len(t, tx.Transfers, 2)
	assert.Equal(t, coin.NewCoin(25, "IOV"), tx.Transfers[0].Amount)
	assert.Equal(t, coin.NewCoin(75, "IOV"), tx.Transfers[1].Amount)
	assert.Nil(t, tx.Activate)
	assert.Nil(t, tx.Invoke)
}

func TestSubmitNothing(t *testing.T) {
	conn := &fakeConn{}
	c := NewClient(conn)

	require.NoError(t, c.SubmitInstructions(context.Background(), nil))
	assert.Len(t, conn.txs, 0)
}

func TestSubmitRejectedByNode(t *testing.T) {
	conn := &fakeConn{
		broadcastResp: &ctypes.ResultBroadcastTxCommit{
			DeliverTx: abci.ResponseDeliverTx{Code: 5, Log: "insufficient funds"},
		},
	}
	c := NewClient(conn)

	err := c.SubmitInstructions(context.Background(), []distributor.Instruction{
		{Recipient: splitter.NewAddress([]byte("alice")), Amount: coin.NewCoin(1, "IOV")},
	})
	assert.True(t, errors.ErrState.Is(err), "got %+v", err)
}

func TestActivateModule(t *testing.T) {
	moduleAddr := splitter.NewAddress([]byte("module"))
	conn := &fakeConn{
		broadcastResp: &ctypes.ResultBroadcastTxCommit{
			DeliverTx: abci.ResponseDeliverTx{Data: moduleAddr},
		},
	}
	c := NewClient(conn)

	addr, err := c.ActivateModule(context.Background(), 42, []byte(`{"beneficiary":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, moduleAddr, addr)

	var tx boundaryTx
	require.NoError(t, json.Unmarshal(conn.txs[0], &tx))
	require.NotNil(t, tx.Activate)
	assert.Equal(t, uint64(42), tx.Activate.CodeID)
}

func TestActivateModuleFailures(t *testing.T) {
	cases := map[string]struct {
		conn    *fakeConn
		wantErr *errors.Error
	}{
		"node unreachable": {
			conn:    &fakeConn{broadcastErr: errors.ErrNetwork.New("connection refused")},
			wantErr: errors.ErrNetwork,
		},
		"rejected during check": {
			conn: &fakeConn{
				broadcastResp: &ctypes.ResultBroadcastTxCommit{
					CheckTx: abci.ResponseCheckTx{Code: 2, Log: "no such code"},
				},
			},
			wantErr: errors.ErrActivation,
		},
		"rejected during deliver": {
			conn: &fakeConn{
				broadcastResp: &ctypes.ResultBroadcastTxCommit{
					DeliverTx: abci.ResponseDeliverTx{Code: 3, Log: "init payload invalid"},
				},
			},
			wantErr: errors.ErrActivation,
		},
		"invalid address returned": {
			conn: &fakeConn{
				broadcastResp: &ctypes.ResultBroadcastTxCommit{
					DeliverTx: abci.ResponseDeliverTx{Data: []byte("bogus")},
				},
			},
			wantErr: errors.ErrActivation,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			c := NewClient(tc.conn)
			_, err := c.ActivateModule(context.Background(), 1, nil)
			assert.True(t, tc.wantErr.Is(err), "got %+v", err)
		})
	}
}

func TestQueryBalance(t *testing.T) {
	account := splitter.NewAddress([]byte("distribution"))

	t.Run("known account", func(t *testing.T) {
		raw, err := json.Marshal(coin.NewCoin(123, "IOV"))
		require.NoError(t, err)
		conn := &fakeConn{queryResp: abci.ResponseQuery{Value: raw}}
		c := NewClient(conn)

		balance, err := c.QueryBalance(context.Background(), account, "IOV")
		require.NoError(t, err)
		assert.Equal(t, coin.NewCoin(123, "IOV"), balance)
		assert.Equal(t, []string{balanceQueryPath}, conn.queries)
	})

	t.Run("unknown account has a zero balance", func(t *testing.T) {
		conn := &fakeConn{}
		c := NewClient(conn)

		balance, err := c.QueryBalance(context.Background(), account, "IOV")
		require.NoError(t, err)
		assert.Equal(t, coin.NewCoin(0, "IOV"), balance)
	})

	t.Run("node unreachable", func(t *testing.T) {
		conn := &fakeConn{queryErr: errors.ErrNetwork.New("timeout")}
		c := NewClient(conn)

		_, err := c.QueryBalance(context.Background(), account, "IOV")
		assert.True(t, errors.ErrNetwork.Is(err), "got %+v", err)
	})
}
