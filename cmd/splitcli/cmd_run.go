package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/client"
	"github.com/iov-one/splitter/distributor"
	"github.com/iov-one/splitter/ledger"
)

// runPlan describes a whole distribution run. It is provided as a JSON
// document on the standard input.
type runPlan struct {
	// Account is the distribution account on the external ledger. All
	// payouts are made from this account.
	Account splitter.Address `json:"account"`
	// Ticker selects the denomination to withdraw and settle.
	Ticker  string      `json:"ticker"`
	Mutable bool        `json:"mutable"`
	Shares  []planShare `json:"shares"`
	// Update optionally replaces the initial share set before the
	// settlement. It requires a mutable configuration.
	Update []planShare `json:"update,omitempty"`
	// Lock makes the share set immutable before the settlement.
	Lock bool `json:"lock,omitempty"`
	// Module optionally activates an auxiliary module and invokes it.
	Module *planModule `json:"module,omitempty"`
}

type planShare struct {
	Recipient  splitter.Address  `json:"recipient"`
	Percentage splitter.Fraction `json:"percentage"`
}

type planModule struct {
	CodeID      uint64          `json:"code_id"`
	Init        json.RawMessage `json:"init,omitempty"`
	Action      json.RawMessage `json:"action,omitempty"`
	Invocations int             `json:"invocations"`
}

func cmdRun(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Execute a distribution run described by a JSON plan provided on the
standard input. The run withdraws the rewards accrued on the distribution
account and settles them according to the share configuration. The
resulting settlement record is written to the standard output.
		`)
		fl.PrintDefaults()
	}
	var (
		tmAddrFl  = fl.String("tm", env("SPLITCLI_TM_ADDR", "http://localhost:26657"), "Tendermint node address. Use proper NETWORK name. You can use SPLITCLI_TM_ADDR environment variable to set it.")
		timeoutFl = fl.Duration("timeout", 2*time.Minute, "Maximum duration of the whole run.")
	)
	fl.Parse(args)

	var plan runPlan
	if err := json.NewDecoder(input).Decode(&plan); err != nil {
		return fmt.Errorf("cannot read plan: %s", err)
	}
	if plan.Ticker == "" {
		return fmt.Errorf("plan is missing a ticker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFl)
	defer cancel()

	bnd := client.NewHTTPClient(*tmAddrFl)
	if _, err := bnd.Status(ctx); err != nil {
		return fmt.Errorf("cannot reach the node: %s", err)
	}

	d, err := distributor.NewDistributor(plan.Account, bnd, toShares(plan.Shares), plan.Mutable)
	if err != nil {
		return fmt.Errorf("cannot create a distributor: %s", err)
	}

	if len(plan.Update) != 0 {
		if err := d.UpdateShares(toShares(plan.Update)); err != nil {
			return fmt.Errorf("cannot update shares: %s", err)
		}
	}
	if plan.Lock {
		d.LockShares()
	}

	if plan.Module != nil {
		mod, err := d.RegisterModule(ctx, plan.Module.CodeID, plan.Module.Init)
		if err != nil {
			return fmt.Errorf("cannot register module: %s", err)
		}
		fmt.Fprintf(output, "module registered at %s\n", mod.Address)

		for i, res := range d.InvokeRepeat(ctx, mod.Address, plan.Module.Action, plan.Module.Invocations) {
			if res.Err != nil {
				fmt.Fprintf(output, "invocation %d failed: %s\n", i+1, res.Err)
			} else {
				fmt.Fprintf(output, "invocation %d ok\n", i+1)
			}
		}
	}

	withdrawn, err := d.WithdrawRewards(ctx, plan.Ticker)
	if err != nil {
		return fmt.Errorf("cannot withdraw rewards: %s", err)
	}
	fmt.Fprintf(output, "withdrawn %s\n", withdrawn)

	settlement, err := d.Settle(ctx, plan.Ticker)
	if err != nil {
		return fmt.Errorf("cannot settle: %s", err)
	}
	pretty, err := json.MarshalIndent(settlement, "", "\t")
	if err != nil {
		return fmt.Errorf("cannot serialize settlement: %s", err)
	}
	_, err = fmt.Fprintln(output, string(pretty))
	return err
}

func toShares(in []planShare) []ledger.Share {
	shares := make([]ledger.Share, len(in))
	for i, s := range in {
		shares[i] = ledger.Share{
			Recipient:  s.Recipient,
			Percentage: s.Percentage,
		}
	}
	return shares
}
