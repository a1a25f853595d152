// Prints the bcrypt hash of the operator password given as the only
// argument, in the form the ADMIN_PASSWORD_HASH setting expects.
package main

import (
	"fmt"
	"os"

	"github.com/ndmitriev/coinvault/internal/service/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpassword <password>")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		fmt.Printf("error while hashing password: %v", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
