/*
Package client implements the execution boundary over a tendermint RPC
connection.

Requests are submitted as JSON encoded transactions. A payout batch is a
single transaction, so the node applies either all transfers or none.
*/
package client

import (
	"context"
	"encoding/json"

	cmn "github.com/tendermint/tendermint/libs/common"
	rpcclient "github.com/tendermint/tendermint/rpc/client"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/coin"
	"github.com/iov-one/splitter/distributor"
	"github.com/iov-one/splitter/errors"
)

const balanceQueryPath = "/accounts/balance"

// Client is a tendermint client wrapped to speak the distribution
// boundary protocol. It implements distributor.Boundary.
type Client struct {
	conn rpcclient.Client
}

var _ distributor.Boundary = (*Client)(nil)

// NewClient wraps an existing tendermint client connection.
func NewClient(conn rpcclient.Client) *Client {
	return &Client{conn: conn}
}

// NewHTTPClient returns a client connected to a remote tendermint node,
// for example "http://localhost:26657".
func NewHTTPClient(remote string) *Client {
	return NewClient(rpcclient.NewHTTP(remote, "/websocket"))
}

// Status returns the current height of the connected node. It can be used
// as a connectivity check before starting a distribution run.
func (c *Client) Status(ctx context.Context) (int64, error) {
	status, err := c.conn.Status()
	if err != nil {
		return 0, errors.Wrapf(errors.ErrNetwork, "status: %s", err.Error())
	}
	return status.SyncInfo.LatestBlockHeight, nil
}

// ActivateModule deploys the module code with given initialization payload
// and returns the address the module was bound to.
func (c *Client) ActivateModule(ctx context.Context, codeID uint64, init []byte) (splitter.Address, error) {
	raw, err := json.Marshal(boundaryTx{
		Activate: &activateMsg{CodeID: codeID, Init: init},
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "marshal: %s", err.Error())
	}
	data, err := c.commit(raw)
	if err != nil {
		if errors.ErrNetwork.Is(err) {
			return nil, err
		}
		return nil, errors.Wrapf(errors.ErrActivation, "activate %d: %s", codeID, err.Error())
	}
	addr := splitter.Address(data)
	if err := addr.Validate(); err != nil {
		return nil, errors.Wrapf(errors.ErrActivation, "node returned an invalid module address: %s", err.Error())
	}
	return addr, nil
}

// InvokeModule forwards an opaque action to an activated module and
// returns whatever the module responded with.
func (c *Client) InvokeModule(ctx context.Context, module splitter.Address, action []byte) ([]byte, error) {
	raw, err := json.Marshal(boundaryTx{
		Invoke: &invokeMsg{Module: module, Action: action},
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "marshal: %s", err.Error())
	}
	return c.commit(raw)
}

// SubmitInstructions executes all payout instructions within a single
// transaction. The node applies either the whole batch or nothing.
func (c *Client) SubmitInstructions(ctx context.Context, instructions []distributor.Instruction) error {
	if len(instructions) == 0 {
		return nil
	}
	transfers := make([]transferMsg, len(instructions))
	for i, instr := range instructions {
		transfers[i] = transferMsg{
			Recipient: instr.Recipient,
			Amount:    instr.Amount,
		}
	}
	raw, err := json.Marshal(boundaryTx{Transfers: transfers})
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "marshal: %s", err.Error())
	}
	_, err = c.commit(raw)
	return err
}

// QueryBalance returns the balance of given account in given denomination.
// An account the node does not know about has a zero balance.
func (c *Client) QueryBalance(ctx context.Context, account splitter.Address, ticker string) (coin.Coin, error) {
	data, err := json.Marshal(balanceQuery{Account: account, Ticker: ticker})
	if err != nil {
		return coin.Coin{}, errors.Wrapf(errors.ErrInput, "marshal: %s", err.Error())
	}
	res, err := c.conn.ABCIQuery(balanceQueryPath, cmn.HexBytes(data))
	if err != nil {
		return coin.Coin{}, errors.Wrapf(errors.ErrNetwork, "query balance: %s", err.Error())
	}
	resp := res.Response
	if resp.IsErr() {
		return coin.Coin{}, errors.Wrapf(errors.ErrState, "query balance rejected (%d): %s", resp.Code, resp.Log)
	}
	if len(resp.Value) == 0 {
		return coin.NewCoin(0, ticker), nil
	}
	var balance coin.Coin
	if err := json.Unmarshal(resp.Value, &balance); err != nil {
		return coin.Coin{}, errors.Wrapf(errors.ErrState, "unmarshal balance: %s", err.Error())
	}
	return balance, nil
}

// commit broadcasts a transaction and waits until it was included in a
// block. It returns the deliver result payload.
func (c *Client) commit(tx []byte) ([]byte, error) {
	res, err := c.conn.BroadcastTxCommit(tx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "broadcast tx: %s", err.Error())
	}
	// A check failure means the transaction never made it into the
	// mempool and therefore never into a block.
	if res.CheckTx.Code != 0 {
		return nil, errors.Wrapf(errors.ErrState, "tx rejected (%d): %s", res.CheckTx.Code, res.CheckTx.Log)
	}
	if res.DeliverTx.Code != 0 {
		return nil, errors.Wrapf(errors.ErrState, "tx failed (%d): %s", res.DeliverTx.Code, res.DeliverTx.Log)
	}
	return res.DeliverTx.Data, nil
}

// boundaryTx is the transaction envelope understood by the node. Exactly
// one attribute must be set.
type boundaryTx struct {
	Activate  *activateMsg  `json:"activate,omitempty"`
	Invoke    *invokeMsg    `json:"invoke,omitempty"`
	Transfers []transferMsg `json:"transfers,omitempty"`
}

type activateMsg struct {
	CodeID uint64 `json:"code_id"`
	Init   []byte `json:"init,omitempty"`
}

type invokeMsg struct {
	Module splitter.Address `json:"module"`
	Action []byte           `json:"action,omitempty"`
}

type transferMsg struct {
	Recipient splitter.Address `json:"recipient"`
	Amount    coin.Coin        `json:"amount"`
}

type balanceQuery struct {
	Account splitter.Address `json:"account"`
	Ticker  string           `json:"ticker"`
}
