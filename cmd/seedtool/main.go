// seedtool generates and splits custody root seeds.
//
// Usage:
//
//	seedtool gen
//	seedtool split -shares 3 -threshold 2 <seed-hex>
//	seedtool combine <share-hex> <share-hex> [...]
//
// Shares are Shamir secret shares of the seed: any threshold-sized
// subset recombines to the original, fewer reveal nothing.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/vault/shamir"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "gen":
		err = runGen()
	case "split":
		err = runSplit(os.Args[2:])
	case "combine":
		err = runCombine(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "seedtool: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: seedtool gen | split [-shares N] [-threshold K] <seed-hex> | combine <share-hex>...")
}

func runGen() error {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("failed to generate seed: %w", err)
	}
	fmt.Println(hex.EncodeToString(seed))
	return nil
}

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	shares := fs.Int("shares", 3, "total number of shares")
	threshold := fs.Int("threshold", 2, "shares required to recombine")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("split requires exactly one seed argument")
	}

	seed, err := hex.DecodeString(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("seed must be hex-encoded: %w", err)
	}
	if len(seed) != 32 {
		return fmt.Errorf("seed must be 32 bytes, got %d", len(seed))
	}

	parts, err := shamir.Split(seed, *shares, *threshold)
	if err != nil {
		return fmt.Errorf("failed to split seed: %w", err)
	}

	for i, part := range parts {
		fmt.Printf("share %d/%d: %s\n", i+1, *shares, hex.EncodeToString(part))
	}
	return nil
}

func runCombine(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("combine requires at least two shares")
	}

	parts := make([][]byte, 0, len(args))
	for i, arg := range args {
		part, err := hex.DecodeString(arg)
		if err != nil {
			return fmt.Errorf("share %d is not hex-encoded: %w", i+1, err)
		}
		parts = append(parts, part)
	}

	seed, err := shamir.Combine(parts)
	if err != nil {
		return fmt.Errorf("failed to combine shares: %w", err)
	}

	fmt.Println(hex.EncodeToString(seed))
	return nil
}
