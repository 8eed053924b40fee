package remap

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/asmremap/internal/cache"
	"github.com/blacktop/asmremap/internal/config"
	"github.com/blacktop/asmremap/internal/download"
	"github.com/blacktop/asmremap/internal/utils"
	"github.com/blacktop/asmremap/pkg/mappings"
	"github.com/blacktop/asmremap/pkg/mappings/proguard"
	"github.com/blacktop/asmremap/pkg/mappings/tiny"
	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"
)

var versionRE = regexp.MustCompile(`yarn-(.+?)\+build`)

// ErrNoGameVersion is returned when no version id is configured or derivable
var ErrNoGameVersion = errors.New("cannot determine game version")

// Indices are the two indices a rewrite runs against
type Indices struct {
	// Intermediate is the tiny table keyed on named names
	Intermediate *mappings.Index
	// Final is the proguard table keyed on official names
	Final *mappings.Index
	// GameVersion the tables belong to
	GameVersion string
}

// GameVersion extracts the version id from a tiny archive name such as
// yarn-1.18+build.1-v2.jar
func GameVersion(archive string) (string, error) {
	m := versionRE.FindStringSubmatch(filepath.Base(archive))
	if m == nil {
		return "", fmt.Errorf("%w: %s does not look like yarn-<version>+build.<n>", ErrNoGameVersion, filepath.Base(archive))
	}
	if _, err := version.NewVersion(m[1]); err != nil {
		log.WithField("version", m[1]).Debug("Non-release version id")
	}
	return m[1], nil
}

// LoadIndices builds both indices, reading and refreshing snapshots in the
// configured cache directory
func LoadIndices(ctx context.Context, conf *config.Config) (*Indices, error) {
	mc := conf.Mappings
	if mc.Tiny == "" {
		return nil, errors.New("no tiny mappings archive given")
	}

	gameVersion := mc.GameVersion
	if gameVersion == "" {
		v, err := GameVersion(mc.Tiny)
		if err != nil {
			return nil, err
		}
		gameVersion = v
	}

	start := time.Now()

	intermediate, err := loadIndex(snapshotPath(&mc, "tiny"), mappings.NamedPivot, func() (*mappings.Records, error) {
		log.WithField("path", mc.Tiny).Info("Parsing tiny mappings")
		return tiny.ParseFile(mc.Tiny)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tiny mappings")
	}

	side, err := download.ParseSide(mc.Side)
	if err != nil {
		return nil, err
	}

	var parse func() (*mappings.Records, error)
	proguardSnapshot := ""
	if mc.Proguard != "" {
		parse = func() (*mappings.Records, error) {
			log.WithField("path", mc.Proguard).Info("Parsing proguard mappings")
			return proguard.ParseFile(mc.Proguard)
		}
	} else {
		name := "proguard"
		if side != download.SideClient {
			name += "-" + string(side)
		}
		proguardSnapshot = snapshotPath(&mc, name)
		parse = func() (*mappings.Records, error) {
			data, err := download.NewClient(conf.DownloadConfig()).Mappings(ctx, gameVersion, side)
			if err != nil {
				return nil, err
			}
			return proguard.Parse(bytes.NewReader(data))
		}
	}

	final, err := loadIndex(proguardSnapshot, mappings.OfficialPivot, parse)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load proguard mappings")
	}

	for _, idx := range []*mappings.Index{intermediate, final} {
		st := idx.Stats()
		utils.Indent(log.WithFields(log.Fields{
			"classes": st.Classes,
			"methods": st.Methods,
			"fields":  st.Fields,
		}).Debug, 2)(fmt.Sprintf("%s index", st.Pivot))
	}
	log.WithFields(log.Fields{
		"version":  gameVersion,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Loaded mappings")

	return &Indices{
		Intermediate: intermediate,
		Final:        final,
		GameVersion:  gameVersion,
	}, nil
}

func snapshotPath(mc *config.Mappings, name string) string {
	if mc.NoCache || mc.Cache == "" {
		return ""
	}
	return cache.Path(mc.Cache, mc.Tiny, name)
}

// loadIndex returns the snapshot at path when it is usable, otherwise parses
// and stores a fresh one. An empty path disables the cache.
func loadIndex(path string, pivot mappings.Pivot, parse func() (*mappings.Records, error)) (*mappings.Index, error) {
	if path != "" {
		idx, err := cache.Load(path)
		switch {
		case err == nil && idx.Pivot() == pivot:
			return idx, nil
		case err == nil:
			log.WithField("path", path).Warn("Cached mappings have the wrong pivot, reparsing")
		case !errors.Is(err, fs.ErrNotExist):
			log.WithError(err).Warn("Ignoring unusable cached mappings")
		}
	}

	recs, err := parse()
	if err != nil {
		return nil, err
	}
	idx, err := mappings.NewIndex(pivot, recs)
	if err != nil {
		return nil, err
	}

	if path != "" {
		if err := cache.Store(path, idx); err != nil {
			log.WithError(err).Warn("Failed to cache mappings")
		}
	}

	return idx, nil
}
