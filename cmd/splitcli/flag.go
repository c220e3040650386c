package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/iov-one/splitter"
)

// flAddress returns a value that is being initialized with given default
// value and optionally overwritten by a command line argument if provided.
// This function follows Go's flag package convention.
// If given value cannot be deserialized to required type, process is
// terminated.
func flAddress(fl *flag.FlagSet, name, defaultVal, usage string) *splitter.Address {
	var a splitter.Address
	if defaultVal != "" {
		var err error
		a, err = splitter.ParseAddress(defaultVal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q address flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(&a, name, usage)
	return &a
}

// env returns the value of an environment variable or, if not set, the
// fallback value.
func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}
