package looper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Take is the saved form of one track: its loop length and events.
type Take struct {
	Loop   int64      `json:"loop"`
	Events []Recorded `json:"events"`
}

// Session is every track of a RecordHandler, as written to disk.
type Session struct {
	TicksPerSecond int64  `json:"ticksPerSecond"`
	Tracks         []Take `json:"tracks"`
}

// rescale converts a session recorded at another tick rate.
func (s Session) rescale(ticksPerSecond int64) Session {
	if s.TicksPerSecond == ticksPerSecond || s.TicksPerSecond <= 0 {
		return s
	}
	conv := func(t int64) int64 { return t * ticksPerSecond / s.TicksPerSecond }
	out := Session{TicksPerSecond: ticksPerSecond, Tracks: make([]Take, len(s.Tracks))}
	for i, take := range s.Tracks {
		evs := make([]Recorded, len(take.Events))
		for j, r := range take.Events {
			evs[j] = Recorded{Offset: conv(r.Offset), Event: r.Event}
		}
		out.Tracks[i] = Take{Loop: conv(take.Loop), Events: evs}
	}
	return out
}

// SaveInfo represents a saved session file (for listing)
type SaveInfo struct {
	Filename  string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
}

const timestampLayout = "2006-01-02_15-04-05"

// ListSaves returns the timestamped saves in dir, newest first
func ListSaves(dir string) ([]SaveInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SaveInfo{}, nil
		}
		return nil, err
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		// 2024-01-15_14-30-00.json or 2024-01-15_14-30-00_name.json
		base := strings.TrimSuffix(entry.Name(), ".json")
		if len(base) < len(timestampLayout) {
			continue
		}
		ts, err := time.ParseInLocation(timestampLayout, base[:len(timestampLayout)], time.Local)
		if err != nil {
			continue
		}
		name := ""
		if rest := base[len(timestampLayout):]; strings.HasPrefix(rest, "_") {
			name = rest[1:]
		}
		saves = append(saves, SaveInfo{Filename: entry.Name(), Name: name, Timestamp: ts})
	}

	sort.SliceStable(saves, func(i, j int) bool {
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})
	return saves, nil
}

// SaveSession writes s to dir as a timestamped file and returns its name.
func SaveSession(dir, name string, s Session, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}

	filename := now.Format(timestampLayout)
	if name = sanitizeFilename(name); name != "" {
		filename += "_" + name
	}
	filename += ".json"

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", err
	}
	return filename, nil
}

// LoadSession reads a save from dir, the most recent one if filename is empty.
func LoadSession(dir, filename string) (Session, error) {
	if filename == "" {
		saves, err := ListSaves(dir)
		if err != nil {
			return Session{}, err
		}
		if len(saves) == 0 {
			return Session{}, fmt.Errorf("no saves found in %s", dir)
		}
		filename = saves[0].Filename
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parse %s: %w", filename, err)
	}
	return s, nil
}

// sanitizeFilename removes characters that are problematic in filenames
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer(" ", "-", "/", "-", "\\", "-", ":", "-").Replace(name)
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`*?"<>|`, r) {
			return -1
		}
		return r
	}, name)
}
