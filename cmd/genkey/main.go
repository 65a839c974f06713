package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const keyBytes = 32

// genkey prints a random bearer key suitable for API_KEY.
func main() {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	prefix := "flk_live_"
	if len(os.Args) > 1 && os.Args[1] == "test" {
		prefix = "flk_test_"
	}
	fmt.Printf("API_KEY=%s%s\n", prefix, hex.EncodeToString(buf))
}
