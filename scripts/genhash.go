// One-off: go run scripts/genhash.go <password> [cost]
// Prints a bcrypt hash suitable for seeding accounts.password_hash.
package main

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: genhash <password> [cost]")
		os.Exit(2)
	}
	cost := bcrypt.DefaultCost
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "cost: %v\n", err)
			os.Exit(2)
		}
		cost = n
	}
	h, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(h))
}
