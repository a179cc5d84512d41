package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/worldhost/internal/config"
)

// ConfigWatcher monitors the configuration file and triggers reloads.
type ConfigWatcher struct {
	configPath   string
	daemon       *Daemon
	watcher      *fsnotify.Watcher
	mu           sync.RWMutex
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration
}

// NewConfigWatcher creates a new configuration file watcher.
func NewConfigWatcher(configPath string, daemon *Daemon) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Resolve absolute path for consistent watching
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath:   absPath,
		daemon:       daemon,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second, // Debounce rapid file changes
	}, nil
}

// Start begins monitoring the configuration file.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	// Watch the directory containing the config file (more reliable than watching the file directly)
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	slog.Info("Starting configuration watcher", "config_path", cw.configPath)

	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx)

	return nil
}

// Stop stops the configuration watcher.
func (cw *ConfigWatcher) Stop(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	slog.Info("Stopping configuration watcher")

	close(cw.stopChan)

	if cw.watcher != nil {
		if err := cw.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", "error", err)
		}
	}

	return nil
}

// watchLoop monitors file system events.
func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			// Only process events for our config file
			if filepath.Base(event.Name) != configFile {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write {
				slog.Debug("Config file write detected", "file", event.Name)
				cw.triggerReload()
			} else if event.Op&fsnotify.Create == fsnotify.Create {
				slog.Debug("Config file create detected", "file", event.Name)
				cw.triggerReload()
			} else if event.Op&fsnotify.Remove == fsnotify.Remove {
				slog.Warn("Config file removed", "file", event.Name)
			} else if event.Op&fsnotify.Rename == fsnotify.Rename {
				slog.Debug("Config file rename detected", "file", event.Name)
				cw.triggerReload()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)
		}
	}
}

// reloadLoop handles debounced configuration reloads.
func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-cw.stopChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-cw.reloadChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(cw.debounceTime, func() {
				if err := cw.performReload(ctx); err != nil {
					slog.Error("Failed to reload configuration", "error", err)
				}
			})
		}
	}
}

// triggerReload triggers a debounced configuration reload.
func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
		// Reload already pending
	}
}

// performReload loads and applies the new configuration.
func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	slog.Info("Reloading configuration", "config_path", cw.configPath)

	newConfig, err := config.Load(cw.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new configuration: %w", err)
	}

	if err := cw.validateConfigChange(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := cw.daemon.ReloadConfig(ctx, newConfig); err != nil {
		return fmt.Errorf("failed to apply new configuration: %w", err)
	}

	slog.Info("Configuration reloaded successfully")
	return nil
}

// validateConfigChange rejects changes that cannot take effect without a
// restart: the object graph is built once from these values.
func (cw *ConfigWatcher) validateConfigChange(newConfig *config.Config) error {
	currentConfig := cw.daemon.GetConfig()

	if newConfig.DataDir != currentConfig.DataDir {
		return fmt.Errorf("data_dir change requires daemon restart")
	}
	if newConfig.Events.SQLitePath != currentConfig.Events.SQLitePath {
		return fmt.Errorf("events.sqlite_path change requires daemon restart")
	}
	if newConfig.HTTP.Addr != currentConfig.HTTP.Addr {
		slog.Warn("HTTP address change detected - requires restart for full effect")
	}

	return nil
}
