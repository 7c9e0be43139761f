package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"memory-loop/internal/metrics"
)

// DefaultSnapshotFile is used by Save and Load when no path is given.
const DefaultSnapshotFile = "persistent_memory.json"

// record is the on-disk form of an Entry, keyed by digest in the
// snapshot object. Timestamp is seconds since the Unix epoch, written as
// an exact decimal with up to nine fractional digits.
type record struct {
	Timestamp json.Number `json:"timestamp"`
	Data      any         `json:"data"`
}

// Save writes every entry, expired or not, to path as an indented JSON
// object. The file is replaced atomically; the store is never modified.
func (s *Store) Save(path string) error {
	if path == "" {
		path = DefaultSnapshotFile
	}

	s.mu.RLock()
	records := make(map[string]record, len(s.data))
	for digest, entry := range s.data {
		records[digest] = record{Timestamp: formatSeconds(entry.Timestamp), Data: entry.Value}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	s.mu.RUnlock()

	if err != nil {
		s.metrics.Inc(metrics.SnapshotSaveFailuresTotal)
		s.logger.Error("snapshot save failed", "path", path, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrEncodeFailed, path, err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		s.metrics.Inc(metrics.SnapshotSaveFailuresTotal)
		s.logger.Error("snapshot save failed", "path", path, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrSaveFailed, path, err)
	}

	s.metrics.Inc(metrics.SnapshotSavesTotal)
	s.logger.Info("snapshot saved", "path", path, "entries", len(records))
	return nil
}

// Load replaces the store contents with the snapshot at path.
//
// Behavior:
// - A missing file resets the store to empty and is not an error
// - An unreadable file returns ErrLoadFailed
// - A malformed file returns ErrCorruptSnapshot
// - On any error the current contents are left untouched
//
// Load does not evict; an oversized snapshot is trimmed by the next Put.
func (s *Store) Load(path string) error {
	if path == "" {
		path = DefaultSnapshotFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.replace(make(map[string]Entry))
			s.metrics.Inc(metrics.SnapshotLoadsTotal)
			s.logger.Info("no snapshot found, starting empty", "path", path)
			return nil
		}
		s.metrics.Inc(metrics.SnapshotLoadFailuresTotal)
		s.logger.Error("snapshot load failed", "path", path, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrLoadFailed, path, err)
	}

	entries, err := decodeSnapshot(data)
	if err != nil {
		s.metrics.Inc(metrics.SnapshotLoadFailuresTotal)
		s.metrics.Inc(metrics.SnapshotCorruptTotal)
		s.logger.Error("snapshot corrupt, keeping current state", "path", path, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, path, err)
	}

	s.replace(entries)
	s.metrics.Inc(metrics.SnapshotLoadsTotal)
	s.logger.Info("snapshot loaded", "path", path, "entries", len(entries))
	return nil
}

func (s *Store) replace(entries map[string]Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = entries
	s.metrics.Set(metrics.StoreKeysTotal, int64(len(entries)))
}

// decodeSnapshot keeps numbers in data as json.Number so integers of
// any size survive a reload unchanged.
func decodeSnapshot(data []byte) (map[string]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records map[string]record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after snapshot object")
	}
	if records == nil {
		return nil, errors.New("top level is not an object")
	}

	entries := make(map[string]Entry, len(records))
	for digest, rec := range records {
		if !validDigest(digest) {
			return nil, fmt.Errorf("invalid digest %q", digest)
		}
		if rec.Timestamp == "" {
			return nil, fmt.Errorf("record %s: missing timestamp", digest)
		}
		ts, err := parseSeconds(rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", digest, err)
		}
		entries[digest] = Entry{
			Digest:    digest,
			Timestamp: ts,
			Value:     rec.Data,
		}
	}
	return entries, nil
}

// formatSeconds renders t as decimal seconds since the epoch without
// losing nanoseconds, e.g. "1700000000.00000005".
func formatSeconds(t time.Time) json.Number {
	sec, nsec := t.Unix(), int64(t.Nanosecond())

	sign := ""
	if sec < 0 {
		sign = "-"
		if nsec > 0 {
			sec++
			nsec = int64(time.Second) - nsec
		}
		sec = -sec
	}

	out := sign + strconv.FormatInt(sec, 10)
	if nsec > 0 {
		frac := strings.TrimRight(fmt.Sprintf("%09d", nsec), "0")
		out += "." + frac
	}
	return json.Number(out)
}

var nanosPerSecond = big.NewInt(int64(time.Second))

const (
	// maxTimestampSeconds is a coarse bound just above the int64 range.
	maxTimestampSeconds = 1e19

	// maxUnixSeconds is the largest Unix second time.Time holds without
	// wrapping its internal count from year 1.
	maxUnixSeconds = math.MaxInt64 - (1969*365+1969/4-1969/100+1969/400)*86400
)

// parseSeconds is the exact inverse of formatSeconds. It also accepts
// exponent forms; anything past nanosecond precision is truncated toward
// the past. Values time.Time cannot represent are rejected.
func parseSeconds(n json.Number) (time.Time, error) {
	// Reject huge exponents before big.Rat expands them.
	f, err := n.Float64()
	if err != nil || math.Abs(f) > maxTimestampSeconds {
		return time.Time{}, fmt.Errorf("timestamp %s out of range", n)
	}

	r, ok := new(big.Rat).SetString(string(n))
	if !ok {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", n)
	}

	nanos := new(big.Int).Mul(r.Num(), nanosPerSecond)
	nanos.Div(nanos, r.Denom())

	sec, nsec := new(big.Int).DivMod(nanos, nanosPerSecond, new(big.Int))
	if !sec.IsInt64() || sec.Int64() > maxUnixSeconds {
		return time.Time{}, fmt.Errorf("timestamp %s out of range", n)
	}
	return time.Unix(sec.Int64(), nsec.Int64()), nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never observe a partial snapshot.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
