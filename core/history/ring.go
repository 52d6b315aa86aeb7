// Package history holds the interpreter's command history.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// DefaultCapacity is the number of commands retained by default.
const DefaultCapacity = 20

// Ring is a fixed-capacity circular buffer of recently accepted commands.
//
// The zero value is not usable, create rings with New. Ring is not safe for
// concurrent use.
type Ring struct {
	entries []string
	// count is the number of commands ever inserted, the next write goes to
	// count % len(entries).
	count int
}

// New creates an empty ring holding at most capacity entries. Capacities
// below 1 are raised to 1.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{entries: make([]string, capacity)}
}

// Cap returns the maximum number of retained entries.
func (r *Ring) Cap() int {
	return len(r.entries)
}

// Len returns the number of entries currently retained.
func (r *Ring) Len() int {
	if r.count < len(r.entries) {
		return r.count
	}
	return len(r.entries)
}

// Count returns the total number of commands inserted since the ring was
// created or cleared.
func (r *Ring) Count() int {
	return r.count
}

// Last returns the most recently inserted entry.
func (r *Ring) Last() (string, bool) {
	if r.count == 0 {
		return "", false
	}
	return r.entries[(r.count-1)%len(r.entries)], true
}

func (r *Ring) insert(cmd string) {
	// Overwriting the slot drops whatever was there once the ring is full.
	r.entries[r.count%len(r.entries)] = cmd
	r.count++
}

// Append records cmd unless it is empty or exactly matches the most recent
// entry, and reports whether it was recorded.
func (r *Ring) Append(cmd string) bool {
	if cmd == "" {
		return false
	}
	if last, ok := r.Last(); ok && last == cmd {
		return false
	}
	r.insert(cmd)
	return true
}

// Recent returns up to k of the newest entries, oldest first.
func (r *Ring) Recent(k int) []string {
	n := r.Len()
	if k < n {
		n = k
	}
	if n <= 0 {
		return nil
	}

	out := make([]string, 0, n)
	start := r.count - n
	for i := start; i < r.count; i++ {
		out = append(out, r.entries[i%len(r.entries)])
	}
	return out
}

// Entries returns every retained entry, oldest first.
func (r *Ring) Entries() []string {
	return r.Recent(r.Len())
}

// Clear removes all entries.
func (r *Ring) Clear() {
	for i := range r.entries {
		r.entries[i] = ""
	}
	r.count = 0
}

// Load reads newline separated commands from path and inserts them in file
// order. Duplicates in the file are kept and empty lines are skipped. A
// missing file is not an error.
func (r *Ring) Load(fsys afero.Fs, path string) error {
	fd, err := fsys.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return err
	}
	defer fd.Close()

	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		r.insert(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// Save overwrites path with the retained entries, oldest first.
func (r *Ring) Save(fsys afero.Fs, path string) error {
	fd, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(fd)
	for _, entry := range r.Entries() {
		if _, err := fmt.Fprintln(w, entry); err != nil {
			fd.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}
