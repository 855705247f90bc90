// Command hash-ops-key generates the argon2id hash for OPS_KEY_HASH.
//
// Usage:
//
//	go run ./scripts/hash-ops-key.go <key>
//
// The printed PHC string goes into the OPS_KEY_HASH environment variable;
// the raw key is what operators send in the X-Ops-Key header.
package main

import (
	"fmt"
	"os"

	"github.com/reimagine/reimagine/internal/auth"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: hash-ops-key <key>")
		os.Exit(2)
	}

	hash, err := auth.HashOpsKey(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash-ops-key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
