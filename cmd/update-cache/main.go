// Command update-cache regenerates the catalog cache from the Glottolog
// languoid export.
//
// Usage:
//
//	go run ./cmd/update-cache
//
// This downloads into ./glotto-data/ (unless already present) and writes to
// ./glotto-cache/. After running, compress the cache files:
//
//	bzip2 -f glotto-cache/*.dmp
package main

import (
	"fmt"
	"os"

	"github.com/glottolabs/glottoguess"
)

func main() {
	fmt.Println("Regenerating catalog cache from the Glottolog export...")

	if err := glottoguess.RegenerateCache(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := glottoguess.ValidateCache(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Cache regenerated successfully.")
	fmt.Println("Run 'bzip2 -f glotto-cache/*.dmp' to compress the cache files.")
}
