package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// Generates the REVIEWER_EMAIL / REVIEWER_PASSWORD_HASH pair the server
// reads at startup. The reviewer account is configuration, not a
// database row, so this tool only prints env lines.
func main() {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Configure Reviewer Account ===")

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Println("Error: Failed to hash password")
		os.Exit(1)
	}

	fmt.Println("\nAdd the following to your .env:")
	fmt.Printf("REVIEWER_EMAIL=%s\n", email)
	fmt.Printf("REVIEWER_PASSWORD_HASH=%s\n", string(hashedPassword))
}
