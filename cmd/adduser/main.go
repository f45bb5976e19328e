// Command adduser provisions an identity in the store and prints a session
// token for it. Session issuance normally belongs to the external auth
// service; this tool exists for development and operations.
package main

import (
	"flag"
	"fmt"
	"log"

	"chat-duo/auth"
	"chat-duo/internal"
	"chat-duo/repositories"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	handle := flag.String("handle", "", "unique human-readable handle")
	password := flag.String("password", "", "initial password")
	flag.Parse()
	if *handle == "" || *password == "" {
		log.Fatal("both -handle and -password are required")
	}

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Hashing failed: %v", err)
	}

	user, err := repositories.NewUserRepository(db).CreateUser(*handle, hash)
	if err != nil {
		log.Fatalf("User creation failed: %v", err)
	}

	token, err := auth.GenerateToken(user.ID, user.Handle, config.AuthTokenDuration)
	if err != nil {
		log.Fatalf("Token generation failed: %v", err)
	}

	fmt.Printf("user id: %s\nhandle:  %s\ntoken:   %s\n", user.ID, user.Handle, token)
}
