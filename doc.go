/*
Package splitter provides the primitive types shared by all packages of the
reward splitter: account addresses and fractional shares.

The splitter models an authority account that collects native token rewards
and periodically distributes them between a configured set of recipients.
The actual splitting logic lives in the ledger and distributor packages,
while the connection to the outside ledger system is abstracted away behind
the distributor.Boundary interface.
*/
package splitter
