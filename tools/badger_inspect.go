package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"

	"wa-gateway/storage"
)

// Offline inspector for the gateway cache. Run against a stopped gateway,
// or a copy of its data directory, to see what a tenant has cached:
//
//	go run ./tools -db ./badger -prefix msg:loc-1:
//	go run ./tools -db ./badger -prefix raw:loc-1: (decodes wire payloads)
func main() {
	dbPath := flag.String("db", "./badger", "Path to badger DB")
	prefix := flag.String("prefix", "chat:", "Prefix to scan (chat:, msg:, raw:, tenant:, device:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Chat", "From", "At", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append(renderRow(key, v))
				count++
				return nil
			})
			if err != nil {
				fmt.Printf("Error reading key %s: %v\n", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	table.Render()
	fmt.Printf("\n%d entries under prefix %q\n", count, *prefix)
}

func renderRow(key string, val []byte) []string {
	var msg storage.CachedMessage
	if err := json.Unmarshal(val, &msg); err == nil && msg.ChatJID != "" {
		return []string{key, "MESSAGE", msg.ChatJID, msg.From, msg.At.Format("2006-01-02 15:04:05"), msg.Body}
	}

	var meta storage.ChatMeta
	if err := json.Unmarshal(val, &meta); err == nil && meta.JID != "" {
		kind := "CHAT"
		if meta.IsGroup {
			kind = "GROUP"
		}
		return []string{key, kind, meta.JID, "", meta.LastAt.Format("2006-01-02 15:04:05"), meta.Name}
	}

	var payload waE2E.Message
	if err := proto.Unmarshal(val, &payload); err == nil {
		return []string{key, "RAW", "", "", "", payload.GetConversation()}
	}

	return []string{key, "OPAQUE", "", "", "", string(val)}
}

func openDB(path string) (*badger.DB, error) {
	options := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil)
	return badger.Open(options)
}
