package download

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/asmremap/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// DefaultManifestURL is the launcher's version manifest
const DefaultManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

const defaultTimeout = 60 * time.Second

// ErrVersionNotFound is returned when the manifest has no entry for a version id
var ErrVersionNotFound = errors.New("version not found in manifest")

// Side selects which distribution's mappings to fetch
type Side string

const (
	SideClient Side = "client"
	SideServer Side = "server"
)

// ParseSide validates a side name
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideClient, SideServer:
		return Side(s), nil
	case "":
		return SideClient, nil
	default:
		return "", fmt.Errorf("unknown side %q (expected %q or %q)", s, SideClient, SideServer)
	}
}

// VersionManifest is the top level launcher manifest
type VersionManifest struct {
	Latest struct {
		Release  string `json:"release,omitempty"`
		Snapshot string `json:"snapshot,omitempty"`
	} `json:"latest"`
	Versions []ManifestVersion `json:"versions"`
}

// ManifestVersion is one entry of the version manifest
type ManifestVersion struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	URL         string `json:"url"`
	ReleaseTime string `json:"releaseTime,omitempty"`
}

// Artifact is a downloadable file referenced by a version document
type Artifact struct {
	SHA1 string `json:"sha1,omitempty"`
	Size int64  `json:"size,omitempty"`
	URL  string `json:"url"`
}

// VersionInfo is the per-version document the manifest points to
type VersionInfo struct {
	ID        string              `json:"id"`
	Type      string              `json:"type,omitempty"`
	Downloads map[string]Artifact `json:"downloads"`
}

// Config is the manifest client config
type Config struct {
	ManifestURL string
	Proxy       string
	Insecure    bool
	Timeout     time.Duration
	// Attempts bounds how often a mappings download is tried
	Attempts int
}

// Client fetches versions and mapping tables from the launcher manifest
type Client struct {
	manifestURL string
	attempts    int
	client      *http.Client
}

// NewClient returns a manifest client
func NewClient(conf *Config) *Client {
	if conf == nil {
		conf = &Config{}
	}
	manifestURL := conf.ManifestURL
	if manifestURL == "" {
		manifestURL = DefaultManifestURL
	}
	timeout := conf.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	attempts := conf.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		manifestURL: manifestURL,
		attempts:    attempts,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           GetProxy(conf.Proxy),
				TLSClientConfig: &tls.Config{InsecureSkipVerify: conf.Insecure},
			},
		},
	}
}

// Manifest fetches the version manifest
func (c *Client) Manifest(ctx context.Context) (*VersionManifest, error) {
	var manifest VersionManifest
	if err := c.getJSON(ctx, c.manifestURL, &manifest); err != nil {
		return nil, errors.Wrap(err, "failed to get version manifest")
	}
	return &manifest, nil
}

// Version fetches the version document for id
func (c *Client) Version(ctx context.Context, id string) (*VersionInfo, error) {
	manifest, err := c.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	for _, v := range manifest.Versions {
		if v.ID != id {
			continue
		}
		var info VersionInfo
		if err := c.getJSON(ctx, v.URL, &info); err != nil {
			return nil, errors.Wrapf(err, "failed to get version %s", id)
		}
		return &info, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, id)
}

// Mappings fetches the readable-namespace table published for a version
func (c *Client) Mappings(ctx context.Context, id string, side Side) ([]byte, error) {
	info, err := c.Version(ctx, id)
	if err != nil {
		return nil, err
	}

	key := string(side) + "_mappings"
	art, ok := info.Downloads[key]
	if !ok || art.URL == "" {
		return nil, fmt.Errorf("%w: version %s publishes no %s", ErrVersionNotFound, id, key)
	}

	log.WithFields(log.Fields{
		"version": id,
		"side":    side,
		"size":    humanize.Bytes(uint64(art.Size)),
	}).Info("Downloading mappings")

	var data []byte
	if err := utils.Retry(c.attempts, time.Second, func() error {
		data, err = c.get(ctx, art.URL)
		if err != nil {
			if ctx.Err() != nil {
				return utils.Stop(err)
			}
			return err
		}
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", key)
	}

	if art.SHA1 != "" && !utils.Verify(art.SHA1, data) {
		return nil, fmt.Errorf("%s for version %s failed checksum verification", key, id)
	}

	return data, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	data, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "failed to decode %s", url)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create http request")
	}
	req.Header.Add("User-Agent", utils.RandomAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status: %s", url, resp.Status)
	}

	return io.ReadAll(resp.Body)
}
