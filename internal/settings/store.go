package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/zsiec/webpanel/internal/logger"
)

// MapStore is an in-memory Store keyed by fully qualified setting names.
type MapStore map[string]any

// Get implements Store.
func (m MapStore) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// ViperStore reads settings from a JSON or YAML file. Keys may be written
// flat ("web-panel.renderMode": "fetch") or nested.
type ViperStore struct {
	mu       sync.RWMutex
	v        *viper.Viper
	log      logger.Logger
	onChange []func()
	watcher  *fsnotify.Watcher
}

// NewViperStore loads path. A missing file is not an error: the store is
// empty and every setting resolves to its default.
func NewViperStore(path string, log logger.Logger) (*ViperStore, error) {
	s := &ViperStore{v: viper.New(), log: logger.OrNull(log)}
	if path == "" {
		return s, nil
	}

	s.v.SetConfigFile(path)
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			s.log.WithField("path", path).Warn("Settings file not found, using defaults")
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	s.log.WithField("path", path).Debug("Settings loaded")
	return s, nil
}

// Get implements Store. Keys are case-insensitive.
func (s *ViperStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.v.IsSet(key) {
		return nil, false
	}
	return s.v.Get(key), true
}

// Set overrides a value in memory. The file on disk is not touched, and
// an override set on a key hides later reloads of that key.
func (s *ViperStore) Set(key string, value any) {
	s.mu.Lock()
	s.v.Set(key, value)
	s.mu.Unlock()
}

// OnChange registers fn to run after the settings file is reloaded.
func (s *ViperStore) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Watch reloads the file whenever it changes on disk. The parent
// directory is watched so editors that save by rename are seen too.
func (s *ViperStore) Watch() error {
	path := s.v.ConfigFileUsed()
	if path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	go s.watch(w, filepath.Clean(path))
	return nil
}

func (s *ViperStore) watch(w *fsnotify.Watcher, path string) {
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != path || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.reload(e)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("Settings watcher error")
		}
	}
}

func (s *ViperStore) reload(e fsnotify.Event) {
	s.mu.Lock()
	err := s.v.ReadInConfig()
	listeners := append([]func(){}, s.onChange...)
	s.mu.Unlock()

	fields := map[string]interface{}{"path": e.Name, "op": e.Op.String()}
	if err != nil {
		// Half-written files are common mid-save; the next event retries.
		s.log.WithFields(fields).WithError(err).Debug("Settings reload failed")
		return
	}
	s.log.WithFields(fields).Info("Settings changed")

	for _, fn := range listeners {
		fn()
	}
}

// Close stops watching.
func (s *ViperStore) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}
