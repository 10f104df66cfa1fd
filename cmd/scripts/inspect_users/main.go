package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/campus-accounts/internal/db"
	"github.com/wuwenbin0122/campus-accounts/internal/utils"
)

// inspect_users lists accounts stored without a login username. Such records
// were created by clients that did not send one and cannot log in.
func main() {
	limit := flag.Int64("limit", 50, "maximum number of records to list")
	flag.Parse()

	_ = godotenv.Load()
	cfg := utils.LoadConfig()

	ctx := context.Background()
	store, err := db.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		log.Fatalf("connect mongo: %v", err)
	}
	defer store.Close(ctx)

	users, err := db.NewMongoUsers(store).MissingUsernames(ctx, *limit)
	if err != nil {
		log.Fatalf("query users: %v", err)
	}

	fmt.Printf("records without username: %d\n", len(users))
	for _, u := range users {
		fmt.Printf("- %s %s %s <%s> (%s, created %s)\n",
			u.ID, u.FirstName, u.LastName, u.Email, u.Affiliation.Role(), u.CreatedAt.Format("2006-01-02"))
	}
}
