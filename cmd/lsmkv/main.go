// Command lsmkv is a minimal smoke-test harness for package lsm: it opens
// a storage directory, applies one write, and prints what a scan sees.
// A full CLI is out of scope (§1) — this exists only so the module is
// runnable end to end, matching the teacher's own minimal main.go shape.
package main

import (
	"flag"
	"fmt"
	"os"

	"lsmkv/iter"
	"lsmkv/lsm"
)

func main() {
	dir := flag.String("dir", "", "storage directory (required)")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "lsmkv: -dir is required")
		os.Exit(1)
	}

	if err := run(*dir); err != nil {
		fmt.Fprintf(os.Stderr, "lsmkv: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string) error {
	store, err := lsm.Open(dir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	if err := store.Put([]byte("hello"), []byte("world")); err != nil {
		return fmt.Errorf("put: %w", err)
	}

	it, err := store.Scan(iter.UnboundedBound, iter.UnboundedBound)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	for it.IsValid() {
		fmt.Printf("%s=%s\n", it.Key(), it.Value())
		if err := it.Next(); err != nil {
			return fmt.Errorf("scan next: %w", err)
		}
	}
	return nil
}
