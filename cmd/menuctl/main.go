// Command menuctl runs maintenance tasks against the ordering database: schema migration,
// menu reindexing and embedding cache inspection.
//
// Usage:
//
//	menuctl migrate
//	menuctl reindex --source static
//	menuctl menu --type live
//	menuctl embeddings list
//	menuctl embeddings purge --model text-embedding-3-small
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
