package tool

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/moyoez/wx-station-go/types"
)

// DefaultDocumentName is the file name of the persisted station configuration.
const DefaultDocumentName = "config.json"

// restoreChunkSize is the copy buffer for restore uploads; the payload is never held whole.
const restoreChunkSize = 512

var (
	// ErrStorageUnavailable means the flash store could not be mounted. The station keeps
	// running on compiled-in defaults and nothing can be persisted.
	ErrStorageUnavailable = errors.New("flash storage unavailable")
	ErrDocumentUnreadable = errors.New("config document cannot be opened")
	ErrDocumentAbsent     = errors.New("config document not found")
	ErrWriteFailed        = errors.New("config document write failed")
)

// LoadState tells where the in-memory record came from.
type LoadState int

const (
	StateUnmounted LoadState = iota
	StateDefaults            // document absent, defaults installed (first boot)
	StateLoaded              // document parsed
	StateCorrupt             // document unreadable or unparsable, defaults installed
	StatePersisted           // record written since the last load
)

func (s LoadState) String() string {
	switch s {
	case StateUnmounted:
		return "unmounted"
	case StateDefaults:
		return "defaults"
	case StateLoaded:
		return "loaded"
	case StateCorrupt:
		return "corrupt"
	case StatePersisted:
		return "persisted"
	default:
		return "unknown"
	}
}

// ConfigStore owns the station configuration record and its persisted document.
type ConfigStore struct {
	mu       sync.RWMutex
	flash    Flash
	name     string
	cfg      types.StationConfig
	state    LoadState
	mounted  bool
	lastErr  error
	onChange []func(types.StationConfig)
}

// NewConfigStore returns a store holding the defaults; call Load to read the document.
func NewConfigStore(flash Flash, name string) *ConfigStore {
	if name == "" {
		name = DefaultDocumentName
	}
	return &ConfigStore{
		flash: flash,
		name:  name,
		cfg:   types.DefaultStationConfig(),
		state: StateUnmounted,
	}
}

func (s *ConfigStore) DocumentName() string {
	return s.name
}

// OnChange registers fn to run with a copy of the record after every load or save.
func (s *ConfigStore) OnChange(fn func(types.StationConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Snapshot returns a copy of the current record.
func (s *ConfigStore) Snapshot() types.StationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// State returns the load state and the error of the last load or save.
func (s *ConfigStore) State() (LoadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.lastErr
}

// Load mounts the flash store if needed and reads the document into the record.
func (s *ConfigStore) Load() (LoadState, error) {
	s.mu.Lock()
	state, err := s.loadLocked()
	s.state, s.lastErr = state, err
	snapshot, hooks := s.cfg, s.onChange
	s.mu.Unlock()

	notifyChange(hooks, snapshot)
	return state, err
}

func (s *ConfigStore) loadLocked() (LoadState, error) {
	if !s.mounted {
		if err := s.flash.Mount(); err != nil {
			DefaultLogger.Errorf("[Config] Flash mount failed: %v", err)
			s.cfg = types.DefaultStationConfig()
			return StateUnmounted, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		s.mounted = true
	}

	if !s.flash.Exists(s.name) {
		DefaultLogger.Infof("[Config] Config file not found, using defaults.")
		s.cfg = types.DefaultStationConfig()
		return StateDefaults, nil
	}

	f, err := s.flash.Open(s.name)
	if err != nil {
		DefaultLogger.Errorf("[Config] Failed to open config file: %v", err)
		s.cfg = types.DefaultStationConfig()
		return StateCorrupt, fmt.Errorf("%w: %v", ErrDocumentUnreadable, err)
	}
	defer f.Close()

	// Read one byte past the limit so an oversized document is detected, not truncated.
	data, err := io.ReadAll(io.LimitReader(f, MaxDocumentSize+1))
	if err != nil {
		DefaultLogger.Errorf("[Config] Failed to read config file: %v", err)
		s.cfg = types.DefaultStationConfig()
		return StateCorrupt, fmt.Errorf("%w: %v", ErrDocumentUnreadable, err)
	}

	cfg, err := DecodeDocument(data)
	if err != nil {
		DefaultLogger.Errorf("[Config] Failed to parse config file: %v", err)
		s.cfg = types.DefaultStationConfig()
		return StateCorrupt, err
	}

	s.cfg = cfg
	DefaultLogger.Infof("[Config] Loaded config for station %q", cfg.StationName)
	return StateLoaded, nil
}

// Save writes the complete record. The document is replaced atomically, so a failed
// save leaves the previous document and the in-memory record untouched.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	err := s.saveLocked()
	if err == nil {
		s.state = StatePersisted
	}
	s.lastErr = err
	snapshot, hooks := s.cfg, s.onChange
	s.mu.Unlock()

	if err == nil {
		notifyChange(hooks, snapshot)
	}
	return err
}

func (s *ConfigStore) saveLocked() error {
	if !s.mounted {
		return fmt.Errorf("%w: %v", ErrWriteFailed, ErrStorageUnavailable)
	}

	data, err := EncodeDocument(&s.cfg)
	if err != nil {
		DefaultLogger.Errorf("[Config] Failed to serialize config: %v", err)
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	tmp := s.name + ".tmp"
	if err := s.writeFile(tmp, func(w io.Writer) error {
		_, werr := w.Write(data)
		return werr
	}); err != nil {
		DefaultLogger.Errorf("[Config] Failed to open config file for writing: %v", err)
		_ = s.flash.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := s.flash.Rename(tmp, s.name); err != nil {
		_ = s.flash.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	DefaultLogger.Debugf("[Config] Saved %d bytes to %s", len(data), s.name)
	return nil
}

// writeFile creates name, runs write and always closes the handle.
func (s *ConfigStore) writeFile(name string, write func(io.Writer) error) (err error) {
	f, err := s.flash.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

// Update applies fn to the record and saves it. The mutation stays in memory even when
// the save fails, matching what the form submitted.
func (s *ConfigStore) Update(fn func(cfg *types.StationConfig)) error {
	s.mu.Lock()
	fn(&s.cfg)
	s.mu.Unlock()
	return s.Save()
}

// Reset deletes the document and reloads, which installs the defaults.
func (s *ConfigStore) Reset() (LoadState, error) {
	s.mu.Lock()
	if s.mounted {
		if err := s.flash.Remove(s.name); err != nil {
			s.mu.Unlock()
			return StateCorrupt, fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
	}
	s.mu.Unlock()
	DefaultLogger.Warnf("[Config] Factory reset, config file removed")
	return s.Load()
}

// Restore replaces the document byte for byte with the content of r and reloads it.
// The upload is copied in small chunks into a temporary file first, so an interrupted
// upload keeps the previous document.
func (s *ConfigStore) Restore(r io.Reader) (LoadState, error) {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return StateUnmounted, fmt.Errorf("%w: %v", ErrWriteFailed, ErrStorageUnavailable)
	}
	tmp := s.name + ".upload"
	var written int64
	err := s.writeFile(tmp, func(w io.Writer) error {
		n, cerr := io.CopyBuffer(w, r, make([]byte, restoreChunkSize))
		written = n
		return cerr
	})
	if err == nil {
		err = s.flash.Rename(tmp, s.name)
	}
	if err != nil {
		_ = s.flash.Remove(tmp)
		s.mu.Unlock()
		DefaultLogger.Errorf("[Config] Restore failed: %v", err)
		return StateCorrupt, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	s.mu.Unlock()

	DefaultLogger.Infof("[Config] Restored %d bytes into %s", written, s.name)
	return s.Load()
}

// OpenDocument opens the persisted document for streaming. ErrDocumentAbsent when missing.
func (s *ConfigStore) OpenDocument() (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.mounted || !s.flash.Exists(s.name) {
		return nil, ErrDocumentAbsent
	}
	f, err := s.flash.Open(s.name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentUnreadable, err)
	}
	return f, nil
}

func notifyChange(hooks []func(types.StationConfig), cfg types.StationConfig) {
	for _, fn := range hooks {
		fn(cfg)
	}
}
