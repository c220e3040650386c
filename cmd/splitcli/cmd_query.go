package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/client"
)

func cmdBalance(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Query the balance of an account on the external ledger.
		`)
		fl.PrintDefaults()
	}
	var (
		tmAddrFl  = fl.String("tm", env("SPLITCLI_TM_ADDR", "http://localhost:26657"), "Tendermint node address. Use proper NETWORK name. You can use SPLITCLI_TM_ADDR environment variable to set it.")
		accountFl = flAddress(fl, "account", "", "The account address to query.")
		tickerFl  = fl.String("ticker", "IOV", "The denomination to query.")
		timeoutFl = fl.Duration("timeout", 10*time.Second, "Maximum duration of the query.")
	)
	fl.Parse(args)

	if err := accountFl.Validate(); err != nil {
		return fmt.Errorf("invalid account address: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFl)
	defer cancel()

	balance, err := client.NewHTTPClient(*tmAddrFl).QueryBalance(ctx, *accountFl, *tickerFl)
	if err != nil {
		return fmt.Errorf("cannot query balance: %s", err)
	}
	_, err = fmt.Fprintln(output, balance)
	return err
}

func cmdKeyaddr(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Derive the account address of an identity. The identity bytes are read
from the standard input and the address is printed in hex encoding.
		`)
		fl.PrintDefaults()
	}
	fl.Parse(args)

	data, err := ioutil.ReadAll(input)
	if err != nil {
		return fmt.Errorf("cannot read input: %s", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("no identity data provided")
	}
	_, err = fmt.Fprintln(output, splitter.NewAddress(data))
	return err
}
