/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */

// Package watch holds the operator-editable project settings: which projects
// are polled, per-project webhook overrides, and the check interval.
package watch

import (
    "encoding/json"
    "os"
    "path/filepath"
    "sort"
    "sync"
    "time"

    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/rs/zerolog"
)

type settingsFile struct {
    WatchedProjects      []string          `json:"watched_projects"`
    ProjectWebhooks      map[string]string `json:"project_webhooks"`
    CheckIntervalMinutes int               `json:"check_interval"`
}

type Settings struct {
    mu   sync.Mutex
    path string
    log  zerolog.Logger
    data settingsFile
}

// Open loads the settings file at path; a missing or corrupt file yields
// empty settings.
func Open(path string, log zerolog.Logger) *Settings {
    s := &Settings{path: path, log: log, data: settingsFile{ProjectWebhooks: map[string]string{}}}
    b, err := os.ReadFile(path)
    if err != nil {
        if !os.IsNotExist(err) {
            log.Error().Err(err).Str("path", path).Msg("settings read failed, starting empty")
        }
        return s
    }
    var loaded settingsFile
    if err := json.Unmarshal(b, &loaded); err != nil {
        log.Error().Err(err).Str("path", path).Msg("settings parse failed, starting empty")
        return s
    }
    if loaded.ProjectWebhooks == nil { loaded.ProjectWebhooks = map[string]string{} }
    s.data = loaded
    return s
}

func (s *Settings) IsWatched(key string) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.watchedLocked(key)
}

func (s *Settings) watchedLocked(key string) bool {
    for _, k := range s.data.WatchedProjects {
        if k == key { return true }
    }
    return false
}

// Toggle flips the watch state of a project and reports the new state.
func (s *Settings) Toggle(key string) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.watchedLocked(key) {
        kept := s.data.WatchedProjects[:0]
        for _, k := range s.data.WatchedProjects {
            if k != key { kept = append(kept, k) }
        }
        s.data.WatchedProjects = kept
        return false, s.save()
    }
    s.data.WatchedProjects = append(s.data.WatchedProjects, key)
    sort.Strings(s.data.WatchedProjects)
    return true, s.save()
}

func (s *Settings) WatchedKeys() []string {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]string, len(s.data.WatchedProjects))
    copy(out, s.data.WatchedProjects)
    return out
}

// WebhookFor returns the per-project webhook override, empty when none is set.
func (s *Settings) WebhookFor(key string) string {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.data.ProjectWebhooks[key]
}

func (s *Settings) SetWebhook(key, url string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if url == "" {
        delete(s.data.ProjectWebhooks, key)
    } else {
        s.data.ProjectWebhooks[key] = url
    }
    return s.save()
}

// CheckInterval returns the stored interval, or zero when unset.
func (s *Settings) CheckInterval() time.Duration {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.data.CheckIntervalMinutes <= 0 { return 0 }
    return time.Duration(s.data.CheckIntervalMinutes) * time.Minute
}

func (s *Settings) SetCheckInterval(d time.Duration) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.data.CheckIntervalMinutes = int(d / time.Minute)
    return s.save()
}

// ByCategory annotates watch state and groups projects by their Jira
// category, falling back to "Uncategorized".
func (s *Settings) ByCategory(projects []domain.Project) map[string][]domain.Project {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := map[string][]domain.Project{}
    for _, p := range projects {
        p.Watched = s.watchedLocked(p.Key)
        cat := p.Category
        if cat == "" { cat = "Uncategorized" }
        out[cat] = append(out[cat], p)
    }
    return out
}

// save rewrites the file through a temp-file rename. Caller holds s.mu.
func (s *Settings) save() error {
    b, err := json.MarshalIndent(s.data, "", "  ")
    if err != nil { return err }
    tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*")
    if err != nil { return err }
    if _, err := tmp.Write(b); err != nil {
        tmp.Close()
        os.Remove(tmp.Name())
        return err
    }
    if err := tmp.Close(); err != nil {
        os.Remove(tmp.Name())
        return err
    }
    return os.Rename(tmp.Name(), s.path)
}
