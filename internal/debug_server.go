package internal

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key    string
	Type   string
	Detail string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type pageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer serves a read-only HTML view over the raw Badger keys,
// filtered by prefix. Development tooling only; it binds its own mux so the
// API server stays untouched.
func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "conv:"
		}

		data := pageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

func DefaultMapper(key string, val []byte) InspectRow {
	return InspectRow{
		Key:    key,
		Type:   "RAW",
		Detail: "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
}
