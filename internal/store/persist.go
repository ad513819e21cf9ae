package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/wan0ge/sleepy/pkg/types"
)

var errMissingDeviceID = errors.New("missing device id")

// IsMissingDeviceID reports whether err means the upsert lacked an id.
func IsMissingDeviceID(err error) bool { return errors.Is(err, errMissingDeviceID) }

// diskState is the on-disk shape of the store. The format is private to the
// daemon; plugins see only their own blob.
type diskState struct {
	StatusID    int                       `json:"status_id"`
	Devices     map[string]types.Device   `json:"devices"`
	PrivateMode bool                      `json:"private_mode"`
	LastUpdated int64                     `json:"last_updated_unix_nano"`
	PluginData  map[string]map[string]any `json:"plugin_data,omitempty"`
}

// Load restores persisted state. A missing file is a fresh start, not an
// error.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var st diskState
	if err := json.Unmarshal(b, &st); err != nil {
		return err
	}
	s.mu.Lock()
	s.statusID = st.StatusID
	if st.Devices != nil {
		s.devices = st.Devices
	}
	s.privateMode = st.PrivateMode
	if st.LastUpdated > 0 {
		s.lastUpdated = time.Unix(0, st.LastUpdated)
	}
	if st.PluginData != nil {
		s.pluginData = st.PluginData
	}
	s.mu.Unlock()
	s.log.Info().Int("devices", len(st.Devices)).Msg("state restored")
	return nil
}

// Save writes the current state to disk if anything changed since the last
// save. Snapshot under lock, write outside it.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	st := diskState{
		StatusID:    s.statusID,
		Devices:     make(map[string]types.Device, len(s.devices)),
		PrivateMode: s.privateMode,
		LastUpdated: s.lastUpdated.UnixNano(),
		PluginData:  make(map[string]map[string]any, len(s.pluginData)),
	}
	for id, d := range s.devices {
		st.Devices[id] = d.Clone()
	}
	for name, data := range s.pluginData {
		cp := make(map[string]any, len(data))
		for k, v := range data {
			cp[k] = v
		}
		st.PluginData[name] = cp
	}
	s.dirty = false
	s.mu.Unlock()

	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Flush saves on a fixed cadence until ctx is done, then saves one last time.
func (s *Store) Flush(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.Save(); err != nil {
				s.log.Warn().Err(err).Msg("final state save failed")
			}
			return
		case <-t.C:
			if err := s.Save(); err != nil {
				s.log.Warn().Err(err).Msg("periodic state save failed")
			}
		}
	}
}
