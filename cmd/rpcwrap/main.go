// Command rpcwrap serves the bundled JSON-RPC targets over HTTP or TCP and
// sends payloads to running servers.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
