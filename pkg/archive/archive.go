// Package archive keeps a local copy of captured story media, one
// directory per account with a JSON sidecar per story.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"storywatch/pkg/capture"
	"storywatch/pkg/logger"
)

// Entry is the sidecar metadata for one archived story.
type Entry struct {
	Account    string    `json:"account"`
	Kind       string    `json:"kind"`
	RecordKey  string    `json:"record_key"`
	MediaFile  string    `json:"media_file,omitempty"`
	Size       int64     `json:"size,omitempty"`
	TakenAt    time.Time `json:"taken_at"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Archive stores story media on disk.
type Archive struct {
	dir    string
	logger logger.Logger
	mu     sync.Mutex
	now    func() time.Time
}

// New creates the archive root directory if needed.
func New(dir string, log logger.Logger) (*Archive, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Archive{dir: dir, logger: log, now: time.Now}, nil
}

// Save archives a captured story under its record key. Saving the same
// record key again is a no-op. Items without media bytes get a sidecar
// only.
func (a *Archive) Save(item *capture.Item, recordKey string) error {
	if item == nil || recordKey == "" {
		return fmt.Errorf("nothing to archive")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	accountDir := filepath.Join(a.dir, item.Account)
	if err := os.MkdirAll(accountDir, 0755); err != nil {
		return fmt.Errorf("failed to create account directory: %w", err)
	}

	base := sanitizeRecordKey(recordKey)
	sidecarPath := filepath.Join(accountDir, base+".json")
	if _, err := os.Stat(sidecarPath); err == nil {
		return nil
	}

	entry := Entry{
		Account:    item.Account,
		Kind:       string(item.Kind),
		RecordKey:  recordKey,
		TakenAt:    item.TakenAt,
		ArchivedAt: a.now().UTC(),
	}

	if len(item.MediaBytes) > 0 {
		mediaFile := base + mediaExt(item.Kind)
		if err := writeAtomic(filepath.Join(accountDir, mediaFile), item.MediaBytes); err != nil {
			return fmt.Errorf("failed to write media file: %w", err)
		}
		entry.MediaFile = mediaFile
		entry.Size = int64(len(item.MediaBytes))
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode archive entry: %w", err)
	}
	if err := writeAtomic(sidecarPath, data); err != nil {
		return fmt.Errorf("failed to write archive entry: %w", err)
	}

	a.logger.DebugWithFields("story archived", map[string]interface{}{
		"account":    item.Account,
		"record_key": recordKey,
		"size":       entry.Size,
	})
	return nil
}

// List returns the archived entries for an account, newest first by
// archive time.
func (a *Archive) List(account string) ([]Entry, error) {
	accountDir := filepath.Join(a.dir, account)

	files, err := os.ReadDir(accountDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var entries []Entry
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(accountDir, file.Name()))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			a.logger.WarnWithFields("skipping unreadable archive entry", map[string]interface{}{
				"file":  file.Name(),
				"error": err.Error(),
			})
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ArchivedAt.After(entries[j].ArchivedAt)
	})
	return entries, nil
}

// Has reports whether a record key is already archived for an account.
func (a *Archive) Has(account, recordKey string) bool {
	sidecarPath := filepath.Join(a.dir, account, sanitizeRecordKey(recordKey)+".json")
	_, err := os.Stat(sidecarPath)
	return err == nil
}

// MediaPath returns the absolute path of an archived media file.
func (a *Archive) MediaPath(account, mediaFile string) string {
	return filepath.Join(a.dir, account, mediaFile)
}

func mediaExt(kind capture.Kind) string {
	if kind == capture.KindVideo {
		return ".mp4"
	}
	return ".jpg"
}

// sanitizeRecordKey makes a record key safe as a file name.
func sanitizeRecordKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}

// writeAtomic writes data with a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tempFile := path + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, writeErr := out.Write(data)
	closeErr := out.Close()
	if writeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
