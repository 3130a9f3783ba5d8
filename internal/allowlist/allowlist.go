// Package allowlist decides which phone numbers may request codes and vote.
package allowlist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/reunion50/reunion/internal/phone"
)

// Set is a set of normalized phone numbers.
type Set map[string]struct{}

func (s Set) Has(p string) bool {
	_, ok := s[p]
	return ok
}

type fileDoc struct {
	Phones []string `yaml:"phones"`
}

// ReadFile loads a {"phones": [...]} document. JSON and YAML are both
// accepted. A missing file yields an empty set. Entries that do not
// normalize are skipped.
func ReadFile(path string) (Set, int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Set{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read allowlist: %w", err)
	}

	var doc fileDoc
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, 0, fmt.Errorf("parse allowlist: %w", err)
		}
	}

	set := make(Set, len(doc.Phones))
	skipped := 0
	for _, raw := range doc.Phones {
		p, ok := phone.Normalize(raw)
		if !ok {
			skipped++
			continue
		}
		set[p] = struct{}{}
	}
	return set, skipped, nil
}

// ReadLines loads one phone per line. Blank lines and lines starting with
// # are ignored. A missing file yields an empty set.
func ReadLines(path string) (Set, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open phone list: %w", err)
	}
	defer f.Close()

	set := make(Set)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if p, ok := phone.Normalize(line); ok {
			set[p] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read phone list: %w", err)
	}
	return set, nil
}

// Gate authorizes phones against the allowlist file. It fails closed: an
// empty or unreadable list rejects everyone unless allowAll is set.
type Gate struct {
	path     string
	allowAll bool
	logger   *slog.Logger

	mu     sync.RWMutex
	phones Set
}

// NewGate returns a deny-all gate backed by path. Call Reload to populate it.
func NewGate(path string, allowAll bool, logger *slog.Logger) *Gate {
	return &Gate{
		path:     path,
		allowAll: allowAll,
		logger:   logger.With("component", "allowlist"),
		phones:   Set{},
	}
}

// Reload re-reads the backing file. On error the gate is emptied.
func (g *Gate) Reload() error {
	set, skipped, err := ReadFile(g.path)
	if err != nil {
		g.mu.Lock()
		g.phones = Set{}
		g.mu.Unlock()
		g.logger.Warn("allowlist unreadable, all phones will be rejected", "path", g.path, "error", err)
		return err
	}

	g.mu.Lock()
	g.phones = set
	g.mu.Unlock()

	if skipped > 0 {
		g.logger.Warn("allowlist entries skipped", "skipped", skipped)
	}
	if len(set) == 0 && !g.allowAll {
		g.logger.Warn("allowlist is empty, all phones will be rejected", "path", g.path)
	}
	g.logger.Info("allowlist loaded", "phones", len(set), "allow_all", g.allowAll)
	return nil
}

func (g *Gate) Allowed(p string) bool {
	if p == "" {
		return false
	}
	if g.allowAll {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.phones.Has(p)
}

func (g *Gate) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.phones)
}
