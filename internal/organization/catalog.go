package organization

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/foodbridge/server/pkg/cerr"
)

// debounceInterval is the delay after an fsnotify event before reloading, so
// rapid write+rename sequences from atomic editors settle first.
const debounceInterval = 200 * time.Millisecond

// Catalog serves the distribution-center list from a YAML file and reloads
// it when the file changes on disk.
type Catalog struct {
	path string

	mu   sync.RWMutex
	byID map[string]*Organization
	all  []*Organization
}

type catalogFile struct {
	Organizations []*Organization `yaml:"organizations"`
}

func NewCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get resolves a distribution center by id.
func (c *Catalog) Get(id string) (*Organization, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	org, ok := c.byID[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "organization not found", nil)
	}
	return org, nil
}

// List returns all distribution centers in file order.
func (c *Catalog) List() []*Organization {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Organization, len(c.all))
	copy(out, c.all)
	return out
}

func (c *Catalog) reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing catalog is an empty catalog, not a startup failure.
			c.mu.Lock()
			c.byID = map[string]*Organization{}
			c.all = nil
			c.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read organization catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse organization catalog: %w", err)
	}
	byID := make(map[string]*Organization, len(file.Organizations))
	for _, org := range file.Organizations {
		byID[org.ID] = org
	}

	c.mu.Lock()
	c.byID = byID
	c.all = file.Organizations
	c.mu.Unlock()
	return nil
}

// Watch reloads the catalog on file changes until ctx is cancelled. The
// parent directory is watched, not the file, so atomic replace (write temp,
// rename) is caught despite the inode change.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	watchDir := filepath.Dir(c.path)
	fileName := filepath.Base(c.path)
	if err := watcher.Add(watchDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", watchDir, err)
	}
	slog.Info("watching organization catalog", "path", c.path)

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != fileName {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceInterval, func() {
				if err := c.reload(); err != nil {
					slog.Error("failed to reload organization catalog", "error", err)
					return
				}
				slog.Info("organization catalog reloaded", "count", len(c.List()))
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", "error", err)
		}
	}
}
