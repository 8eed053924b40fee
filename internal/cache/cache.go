// Package cache persists parsed mapping indices as lz4 framed JSON snapshots
// so repeated runs against the same archive skip table parsing.
package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/asmremap/pkg/mappings"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-version"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

const (
	// FormatVersion is written into every snapshot
	FormatVersion = "1.1.0"
	// FormatConstraint is the range of snapshot formats this build can read
	FormatConstraint = ">= 1.0, < 2.0"

	snapshotExt = ".json.lz4"
)

// ErrIncompatible is returned for snapshots this build cannot read
var ErrIncompatible = errors.New("incompatible cache snapshot")

// Snapshot is the on-disk document
type Snapshot struct {
	Format  string            `json:"format"`
	Pivot   string            `json:"pivot"`
	Records *mappings.Records `json:"records"`
}

// Dir returns the default cache root
func Dir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user cache directory")
	}
	return filepath.Join(dir, "asmremap"), nil
}

// Path returns the snapshot path for the named table derived from archive
func Path(root, archive, name string) string {
	base := filepath.Base(archive)
	switch ext := strings.ToLower(filepath.Ext(base)); ext {
	case ".jar", ".zip", ".tiny", ".txt":
		base = base[:len(base)-len(ext)]
	}
	return filepath.Join(root, base, name+snapshotExt)
}

// Write encodes idx as a snapshot to w
func Write(w io.Writer, idx *mappings.Index) error {
	zw := lz4.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(&Snapshot{
		Format:  FormatVersion,
		Pivot:   idx.Pivot().Name(),
		Records: idx.Records(),
	}); err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "failed to flush lz4 frame")
	}
	return nil
}

// Read decodes a snapshot from r and rebuilds its index
func Read(r io.Reader) (*mappings.Index, error) {
	var snap Snapshot
	if err := json.NewDecoder(lz4.NewReader(r)).Decode(&snap); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot")
	}

	if err := checkFormat(snap.Format); err != nil {
		return nil, err
	}
	if snap.Records == nil {
		return nil, fmt.Errorf("%w: snapshot has no records", ErrIncompatible)
	}

	pivot, err := mappings.PivotByName(snap.Pivot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
	}

	return mappings.NewIndex(pivot, snap.Records)
}

func checkFormat(format string) error {
	v, err := version.NewVersion(format)
	if err != nil {
		return fmt.Errorf("%w: bad format version %q", ErrIncompatible, format)
	}
	constraints, err := version.NewConstraint(FormatConstraint)
	if err != nil {
		return errors.Wrap(err, "failed to parse format constraint")
	}
	if !constraints.Check(v) {
		return fmt.Errorf("%w: format %s does not satisfy %s", ErrIncompatible, v, FormatConstraint)
	}
	return nil
}

// Load reads the snapshot at path
func Load(path string) (*mappings.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}

	log.WithFields(log.Fields{
		"path":  path,
		"pivot": idx.Pivot().Name(),
	}).Debug("Loaded cached mappings")

	return idx, nil
}

// Store writes idx to path, replacing any previous snapshot
func Store(path string, idx *mappings.Index) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrapf(err, "failed to create cache directory %s", filepath.Dir(path))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create snapshot")
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, idx); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close snapshot")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to move snapshot into place at %s", path)
	}

	if fi, err := os.Stat(path); err == nil {
		log.WithFields(log.Fields{
			"path": path,
			"size": humanize.Bytes(uint64(fi.Size())),
		}).Debug("Cached mappings")
	}

	return nil
}
