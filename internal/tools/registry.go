package tools

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/cortexcore/cortex/internal/observability"
)

var (
	factoryMu sync.Mutex
	factories = make(map[string]Factory)
)

// RegisterFactory registers a Tool constructor under toolName in the
// process-wide factory table. Call this from an init() in the package that
// implements a concrete tool, mirroring nexus's RegisterRuntimePlugin.
func RegisterFactory(toolName string, f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[toolName] = f
}

func lookupFactory(toolName string) (Factory, bool) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	f, ok := factories[toolName]
	return f, ok
}

type entry struct {
	manifest *Manifest
	tool     Tool
	enabled  bool
	running  bool
}

// Registry discovers tool manifests on disk, matches them against
// statically registered factories, and owns each tool's enabled/running
// lifecycle (spec §4.3).
type Registry struct {
	mu       sync.Mutex
	dir      string
	logger   *observability.Logger
	entries  map[string]*entry
	watcher  *fsnotify.Watcher
	watchCtx context.Context
	cancel   context.CancelFunc
}

// NewRegistry creates a Registry rooted at dir, the install directory
// scanned for one subdirectory per tool.
func NewRegistry(dir string, logger *observability.Logger) *Registry {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Registry{
		dir:     dir,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// DiscoverManifests walks the install directory for ManifestFilename files,
// validates each, and registers a disabled, not-running entry for it.
func (r *Registry) DiscoverManifests() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != ManifestFilename {
			return nil
		}
		manifest, err := DecodeManifestFile(path)
		if err != nil {
			r.logger.Warn(context.Background(), "skipping invalid tool manifest", "path", path, "error", err)
			return nil
		}
		if err := manifest.Validate(); err != nil {
			r.logger.Warn(context.Background(), "skipping invalid tool manifest", "path", path, "error", err)
			return nil
		}
		if _, ok := r.entries[manifest.ToolName]; !ok {
			r.entries[manifest.ToolName] = &entry{manifest: manifest}
		} else {
			r.entries[manifest.ToolName].manifest = manifest
		}
		return nil
	})
}

// Watch starts an fsnotify watch on the install directory; on any write or
// create event it re-runs DiscoverManifests so manifest edits are picked up
// live, grounded on nexus's fsnotify-backed plugin reload.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create manifest watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch tool install directory: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.watcher = watcher
	r.watchCtx = watchCtx
	r.cancel = cancel
	r.mu.Unlock()

	go r.watchLoop(watchCtx, watcher)
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := r.DiscoverManifests(); err != nil {
				r.logger.Warn(ctx, "manifest rediscovery failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn(ctx, "manifest watcher error", "error", err)
		}
	}
}

// StopWatching cancels a running manifest watch, if any.
func (r *Registry) StopWatching() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// ListManifests returns every discovered manifest.
func (r *Registry) ListManifests() []*Manifest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Manifest, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.manifest)
	}
	return out
}

// GetManifest returns the manifest for toolName, if discovered.
func (r *Registry) GetManifest(toolName string) (*Manifest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[toolName]
	if !ok {
		return nil, false
	}
	return e.manifest, true
}

// Enable constructs (if needed) and starts toolName's coroutine, flipping
// its control variable on. Returns an error if no factory is registered for
// the tool or Start fails.
func (r *Registry) Enable(ctx context.Context, toolName string) error {
	r.mu.Lock()
	e, ok := r.entries[toolName]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("tool %q not discovered", toolName)
	}

	if e.tool == nil {
		factory, ok := lookupFactory(toolName)
		if !ok {
			return fmt.Errorf("no factory registered for tool %q", toolName)
		}
		tool, err := factory(e.manifest)
		if err != nil {
			return fmt.Errorf("construct tool %q: %w", toolName, err)
		}
		e.tool = tool
	}

	if err := e.tool.Start(ctx); err != nil {
		return fmt.Errorf("start tool %q: %w", toolName, err)
	}

	r.mu.Lock()
	e.enabled = true
	e.running = true
	r.mu.Unlock()
	return nil
}

// Disable stops toolName's coroutine, flipping its control variable off.
func (r *Registry) Disable(ctx context.Context, toolName string) error {
	r.mu.Lock()
	e, ok := r.entries[toolName]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("tool %q not discovered", toolName)
	}
	if e.tool == nil || !e.running {
		r.mu.Lock()
		e.enabled = false
		r.mu.Unlock()
		return nil
	}
	if err := e.tool.End(ctx); err != nil {
		return fmt.Errorf("stop tool %q: %w", toolName, err)
	}
	r.mu.Lock()
	e.enabled = false
	e.running = false
	r.mu.Unlock()
	return nil
}

// IsRunning reports whether toolName's coroutine is currently started.
func (r *Registry) IsRunning(toolName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[toolName]
	return ok && e.running
}

// IsEnabled reports whether toolName's control variable is on.
func (r *Registry) IsEnabled(toolName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[toolName]
	return ok && e.enabled
}

// IsAvailable reports whether toolName exists, is running, and its backend
// reports itself ready.
func (r *Registry) IsAvailable(toolName string) bool {
	r.mu.Lock()
	e, ok := r.entries[toolName]
	r.mu.Unlock()
	if !ok || e.tool == nil || !e.running {
		return false
	}
	return e.tool.IsAvailable()
}

// GetTool returns the constructed Tool instance for toolName, if any.
func (r *Registry) GetTool(toolName string) (Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[toolName]
	if !ok || e.tool == nil {
		return nil, false
	}
	return e.tool, true
}

// EnabledToolNames returns the names of every tool currently enabled.
func (r *Registry) EnabledToolNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for name, e := range r.entries {
		if e.enabled {
			out = append(out, name)
		}
	}
	return out
}
