// Command viewer prints the stored conversations and, optionally, one
// thread, straight from the Badger files. Read-only operator tooling.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"chat-duo/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
}

func main() {
	pair := flag.String("pair", "", "dump the thread for a canonical pair key (userA|userB)")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *pair != "" {
		dumpThread(db, *pair)
		return
	}
	listConversations(db)
}

func listConversations(db *badger.DB) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Pair", "Conversation ID", "Messages"})

	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("conv:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				var conv domain.Conversation
				if err := json.Unmarshal(val, &conv); err != nil {
					return err
				}
				table.Append([]string{
					string(item.Key()[len(prefix):]),
					conv.ID.String(),
					fmt.Sprintf("%d", len(conv.MessageIDs)),
				})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Listing failed: %v", err)
	}
	table.Render()
}

func dumpThread(db *badger.DB, pairKey string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Created", "Sender", "Kind", "Body", "Lang", "Viewed"})

	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("conv:" + pairKey))
		if err != nil {
			return fmt.Errorf("no conversation for pair %q: %w", pairKey, err)
		}
		var conv domain.Conversation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		}); err != nil {
			return err
		}

		for _, id := range conv.MessageIDs {
			msgItem, err := txn.Get([]byte("mesg:" + id.String()))
			if err != nil {
				return err
			}
			if err := msgItem.Value(func(val []byte) error {
				var rec struct {
					SenderID  string `json:"sender_id"`
					Text      string `json:"text"`
					FileName  string `json:"file_name"`
					Lang      string `json:"lang"`
					CreatedAt string `json:"created_at"`
					Viewed    bool   `json:"viewed"`
				}
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				kind, body := "text", rec.Text
				if rec.FileName != "" {
					kind, body = "file", rec.FileName
				}
				viewed := color.Red.Sprint("no")
				if rec.Viewed {
					viewed = color.Green.Sprint("yes")
				}
				table.Append([]string{rec.CreatedAt, rec.SenderID, kind, body, rec.Lang, viewed})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Dump failed: %v", err)
	}
	table.Render()
}
