package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
)

// pinhash prints a bcrypt hash for ADMIN_PIN_HASH so the plain PIN never has
// to live in the server environment.
func main() {
	// CLI flags
	pin := flag.String("pin", "", "Admin PIN to hash")
	flag.Parse()

	// Fall back to environment variables
	if *pin == "" {
		*pin = os.Getenv("ADMIN_PIN")
	}
	if *pin == "" {
		log.Fatal("usage: pinhash -pin 1234 (or set ADMIN_PIN)")
	}
	if len(*pin) < 4 {
		log.Fatal("PIN must be at least 4 digits")
	}
	for _, r := range *pin {
		if r < '0' || r > '9' {
			log.Fatal("PIN must contain digits only")
		}
	}

	hash, err := auth.HashPIN(*pin)
	if err != nil {
		log.Fatalf("hash pin: %v", err)
	}
	fmt.Println(hash)
}
