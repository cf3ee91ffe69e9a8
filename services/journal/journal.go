// Package journal is a callback-style dispatch target: its operations report
// completion through a callback instead of returning.
package journal

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
)

// CallbackMethods names the methods of Journal that must be registered with
// jsonrpc.WithCallbackMethods.
var CallbackMethods = []string{"storeContent", "getFields"}

// Journal appends content to a file.
type Journal struct {
	path   string
	fields []int
	log    *slog.Logger

	mu sync.Mutex
}

// New returns a Journal appending to path. A nil logger discards logging.
func New(path string, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Journal{path: path, fields: []int{1, 2, 3}, log: logger}
}

// StoreContent appends content and a newline to the journal file on a
// separate goroutine, then calls done.
func (j *Journal) StoreContent(content string, done func(error)) {
	go func() {
		err := j.append(content + "\n")
		if err != nil {
			j.log.Error("journal.write.fail", slog.String("path", j.path), slog.String("err", err.Error()))
		}
		done(err)
	}()
}

// GetFields reports the journal's field list.
func (j *Journal) GetFields(done func(error, []int)) {
	done(nil, slices.Clone(j.fields))
}

func (j *Journal) append(s string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open: %w", err)
	}
	if _, err := f.WriteString(s); err != nil {
		f.Close()
		return fmt.Errorf("journal: write: %w", err)
	}
	return f.Close()
}
