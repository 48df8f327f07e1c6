package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/karafriends/backend/internal/logging"
	"github.com/karafriends/backend/internal/session"
)

// AccessListFile is the on-disk override for the admission settings.
// Absent fields fall back to the environment values.
type AccessListFile struct {
	AdminNicks        []string `json:"adminNicks"`
	AdminDeviceIDs    []string `json:"adminDeviceIds"`
	PaxSongQueueLimit *int     `json:"paxSongQueueLimit"`
}

// AccessList is the live admission policy: the per-device queue limit and
// the privileged nicknames and device ids. It is safe for concurrent use
// and can be reloaded while the server runs.
type AccessList struct {
	mu        sync.RWMutex
	base      AccessListFile
	limit     int
	nicks     map[string]struct{}
	deviceIDs map[string]struct{}
}

// NewAccessList builds the policy from the environment configuration.
func NewAccessList(cfg *Config) *AccessList {
	limit := cfg.PaxSongQueueLimit
	a := &AccessList{
		base: AccessListFile{
			AdminNicks:        cfg.AdminNicks,
			AdminDeviceIDs:    cfg.AdminDeviceIDs,
			PaxSongQueueLimit: &limit,
		},
	}
	a.apply(AccessListFile{})
	return a
}

func (a *AccessList) SongQueueLimit() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.limit
}

func (a *AccessList) IsPrivileged(user session.UserIdentity) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.nicks[user.Nickname]; ok {
		return true
	}
	_, ok := a.deviceIDs[user.DeviceID]
	return ok
}

func (a *AccessList) apply(override AccessListFile) {
	nicks := a.base.AdminNicks
	if override.AdminNicks != nil {
		nicks = override.AdminNicks
	}
	deviceIDs := a.base.AdminDeviceIDs
	if override.AdminDeviceIDs != nil {
		deviceIDs = override.AdminDeviceIDs
	}
	limit := *a.base.PaxSongQueueLimit
	if override.PaxSongQueueLimit != nil {
		limit = *override.PaxSongQueueLimit
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.limit = limit
	a.nicks = toSet(nicks)
	a.deviceIDs = toSet(deviceIDs)
}

// LoadFile applies the overrides in path.
func (a *AccessList) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read access list: %w", err)
	}
	var file AccessListFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse access list: %w", err)
	}
	a.apply(file)

	slog.Info("access list loaded",
		slog.String("path", path),
		slog.Int("song_queue_limit", a.SongQueueLimit()),
	)
	return nil
}

// Watch reloads path whenever it is written or recreated, until ctx is
// done. The parent directory is watched so editors that replace the file
// by rename are picked up. A reload that fails keeps the previous values.
func (a *AccessList) Watch(ctx context.Context, path string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch access list directory: %w", err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := a.LoadFile(path); err != nil {
				slog.Warn("access list reload failed", slog.Any("error", logging.WrapError(err, "reload access list")))
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("access list watcher error", slog.String("error", err.Error()))
		case <-ctx.Done():
			return nil
		}
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
