package testutil

import (
	"context"
	"time"

	"github.com/autom8ter/multiq"
	"github.com/brianvoe/gofakeit/v6"
)

// TestDB runs the given function against an in-memory database
func TestDB(fn func(ctx context.Context, db *multiq.DB)) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := multiq.Open(ctx, multiq.Config{
		Provider: "badger",
		LogLevel: "error",
	})
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	fn(ctx, db)
	return nil
}

// SeedUsers writes the canonical user fixtures: sree (Sreejith, 25) and
// vishnu (Vishnu, 31), each indexed on name_bin and age_int
func SeedUsers(ctx context.Context, db *multiq.DB, bucket string) error {
	users := []struct {
		key  string
		name string
		age  int
	}{
		{key: "sree", name: "Sreejith", age: 25},
		{key: "vishnu", name: "Vishnu", age: 31},
	}
	for _, u := range users {
		doc, err := multiq.NewDocumentFrom(map[string]any{
			"name": u.name,
			"age":  u.age,
		})
		if err != nil {
			return err
		}
		if _, err := db.Put(ctx, bucket, u.key, doc,
			multiq.IndexFor("name", u.name),
			multiq.IndexFor("age", u.age),
		); err != nil {
			return err
		}
	}
	return nil
}

// NewUserDoc creates a random user document
func NewUserDoc() *multiq.Document {
	doc, err := multiq.NewDocumentFrom(map[string]any{
		"name":       gofakeit.Name(),
		"age":        gofakeit.IntRange(0, 100),
		"language":   gofakeit.Language(),
		"account_id": gofakeit.IntRange(0, 100),
		"contact": map[string]any{
			"email": gofakeit.Email(),
		},
	})
	if err != nil {
		panic(err)
	}
	return doc
}
