// Package logging installs the process-wide log.Logger output the way the
// teacher's log.go does (rotate a single file, tee to stdout) but adds
// structured key=value suffixes and a tee onto the event bus so the
// Internal error kind (§7) can be observed by subscribers.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Sink receives every formatted log line, for a caller that wants to tee
// them elsewhere.
type Sink func(line string)

type writer struct {
	mu   sync.Mutex
	file *os.File
	dir  string
	sink Sink
}

func (w *writer) Write(p []byte) (int, error) {
	fmt.Print(string(p))

	w.mu.Lock()
	if w.file != nil {
		w.file.Write(p)
	}
	w.mu.Unlock()

	if w.sink != nil {
		w.sink(string(p))
	}

	return len(p), nil
}

// Init rotates the previous log file into last.txt and installs the new
// one as the destination for the standard log package. dir defaults to
// "log" when empty.
func Init(dir string, sink Sink) error {
	if dir == "" {
		dir = "log"
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}

	latest := filepath.Join(dir, "latest.txt")
	last := filepath.Join(dir, "last.txt")
	os.Rename(latest, last)

	f, err := os.OpenFile(latest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	log.SetOutput(&writer{file: f, dir: dir, sink: sink})
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return nil
}

// Fields formats a stable key=value suffix for a log.Printf call, e.g.
//
//	log.Printf("session closed %s", logging.Fields{"session": id, "reason": reason})
type Fields map[string]interface{}

func (f Fields) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, f[k]))
	}
	return strings.Join(parts, " ")
}
