package registry

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	iofs "io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/core"
)

// Cache file layout: magic, version byte, CRC-32 (IEEE) of the payload,
// payload length, then the gob-encoded registry. All integers are little endian.
const (
	cacheMagic      = "AETHREG"
	cacheVersion    = 1
	cacheHeaderSize = len(cacheMagic) + 1 + 4 + 8
)

var (
	errCacheMagic    = errors.New("invalid cache magic")
	errCacheVersion  = errors.New("cache version mismatch")
	errCacheTooSmall = errors.New("cache file too small")
	errCacheChecksum = errors.New("cache checksum mismatch")
	errCacheLength   = errors.New("cache payload length mismatch")
	errCacheStale    = errors.New("cache older than extensions")
)

// EncodeCache serializes a registry into the cache format.
func EncodeCache(reg *core.Registry) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(reg); err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}

	buf := make([]byte, cacheHeaderSize, cacheHeaderSize+payload.Len())
	copy(buf, cacheMagic)
	off := len(cacheMagic)
	buf[off] = cacheVersion
	off++
	binary.LittleEndian.PutUint32(buf[off:], crc32.ChecksumIEEE(payload.Bytes()))
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], uint64(payload.Len()))

	return append(buf, payload.Bytes()...), nil
}

// DecodeCache validates and decodes a cache blob.
func DecodeCache(data []byte) (*core.Registry, error) {
	if len(data) < cacheHeaderSize {
		return nil, errCacheTooSmall
	}
	if string(data[:len(cacheMagic)]) != cacheMagic {
		return nil, errCacheMagic
	}
	off := len(cacheMagic)
	if data[off] != cacheVersion {
		return nil, errCacheVersion
	}
	off++
	sum := binary.LittleEndian.Uint32(data[off:])
	off += 4
	size := binary.LittleEndian.Uint64(data[off:])

	payload := data[cacheHeaderSize:]
	if uint64(len(payload)) != size {
		return nil, errCacheLength
	}
	if crc32.ChecksumIEEE(payload) != sum {
		return nil, errCacheChecksum
	}

	var reg core.Registry
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&reg); err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}
	if reg.Plugins == nil {
		reg.Plugins = map[string]core.Extension{}
	}
	if reg.ResolvedSchemas == nil {
		reg.ResolvedSchemas = map[string][]core.Field{}
	}
	return &reg, nil
}

// readCache returns the cached registry when it is newer than every entry
// under pluginsDir. A nil registry is a miss and err says why; callers
// rebuild on any miss.
func readCache(cachePath, pluginsDir string) (*core.Registry, error) {
	info, err := os.Stat(cachePath)
	if err != nil {
		return nil, err
	}

	newest, err := newestModTime(pluginsDir)
	if err != nil {
		return nil, err
	}
	if !info.ModTime().After(newest) {
		return nil, errCacheStale
	}

	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	return DecodeCache(data)
}

// writeCache stores reg and stamps the file with now, which is what later
// freshness checks compare against. now must be read before the registry
// was built, so that edits made during the build leave the cache stale.
func writeCache(cachePath string, reg *core.Registry, now time.Time) error {
	data, err := EncodeCache(reg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(cachePath, data, 0644); err != nil {
		return err
	}
	return os.Chtimes(cachePath, now, now)
}

// newestModTime returns the latest modification time of pluginsDir and
// everything below it. A missing directory yields the zero time.
func newestModTime(pluginsDir string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(pluginsDir, func(_ string, d iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to scan extensions: %w", err)
	}
	return newest, nil
}
