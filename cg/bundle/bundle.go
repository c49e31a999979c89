// Package bundle loads legacy export bundles: a manifest.yaml plus
// entities/*.yaml documents, fetched from any go-getter source.
package bundle

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	getter "github.com/hashicorp/go-getter"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
)

// SupportedSchema is the manifest schemaVersion constraint this loader reads.
const SupportedSchema = "^1"

// Manifest describes an export bundle.
type Manifest struct {
	SchemaVersion string `yaml:"schemaVersion"`
	AccountID     string `yaml:"accountId"`
	ExportedAt    string `yaml:"exportedAt,omitempty"`
	Source        string `yaml:"source,omitempty"`
}

// Putter receives decoded entities; memstore and sqlstore both satisfy it.
type Putter interface {
	Put(ctx context.Context, e cg.Entity) error
}

// Fetch materializes src as a local directory. Local paths are used in place;
// remote sources (git::, https://, s3::) are downloaded to a temp directory
// that cleanup removes.
func Fetch(ctx context.Context, src string, logger *zap.SugaredLogger) (dir string, cleanup func(), err error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}
	detected, err := getter.Detect(src, pwd, getter.Detectors)
	if err != nil {
		return "", nil, errors.Wrapf(err, "invalid bundle source %q", src)
	}

	if u, perr := url.Parse(detected); perr == nil && u.Scheme == "file" {
		if info, serr := os.Stat(u.Path); serr == nil && info.IsDir() {
			return u.Path, func() {}, nil
		}
	}

	tempDir, err := os.MkdirTemp("", "ngmigrate-bundle-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create temp directory")
	}
	// go-getter requires a destination that does not exist yet in dir mode
	dst := filepath.Join(tempDir, "bundle")

	logger.Infow("Fetching export bundle", "source", detected, "destination", dst)

	client := &getter.Client{
		Ctx:     ctx,
		Src:     detected,
		Dst:     dst,
		Pwd:     pwd,
		Mode:    getter.ClientModeDir,
		Getters: getter.Getters,
	}
	if err := client.Get(); err != nil {
		os.RemoveAll(tempDir)
		return "", nil, errors.Wrapf(err, "failed to fetch bundle %s", src)
	}

	return dst, func() { os.RemoveAll(tempDir) }, nil
}

// ReadManifest parses and version-checks dir/manifest.yaml.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read bundle manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse bundle manifest")
	}

	v, err := semver.NewVersion(m.SchemaVersion)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid bundle schemaVersion %q", m.SchemaVersion)
	}
	constraint, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		return nil, errors.Wrap(err, "invalid supported schema constraint")
	}
	if !constraint.Check(v) {
		return nil, errors.WithHint(
			errors.Newf("bundle schema %s is not supported", m.SchemaVersion),
			"re-export the bundle with a 1.x exporter",
		)
	}
	return &m, nil
}

// Load fetches src, validates its manifest and puts every entity document
// into dst. Files are read in name order; a file may hold several documents.
func Load(ctx context.Context, src string, dst Putter, logger *zap.SugaredLogger) (*Manifest, int, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	dir, cleanup, err := Fetch(ctx, src, logger)
	if err != nil {
		return nil, 0, err
	}
	defer cleanup()

	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, 0, err
	}

	files, err := filepath.Glob(filepath.Join(dir, "entities", "*.yaml"))
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list bundle entities")
	}
	sort.Strings(files)

	count := 0
	for _, path := range files {
		n, err := loadFile(ctx, path, dst)
		count += n
		if err != nil {
			return manifest, count, err
		}
	}

	logger.Infow("Export bundle loaded",
		"account_id", manifest.AccountID,
		"schema_version", manifest.SchemaVersion,
		"files", len(files),
		"count", count,
	)
	return manifest, count, nil
}

func loadFile(ctx context.Context, path string, dst Putter) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	count := 0
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, errors.Wrapf(err, "failed to parse %s", filepath.Base(path))
		}
		if len(doc.Content) == 0 {
			continue
		}
		root := doc.Content[0]

		var header struct {
			Type string `yaml:"type"`
		}
		if err := root.Decode(&header); err != nil {
			return count, errors.Wrapf(err, "document %d of %s", count+1, filepath.Base(path))
		}
		t, err := cg.ParseEntityType(header.Type)
		if err != nil {
			return count, errors.Wrapf(err, "document %d of %s", count+1, filepath.Base(path))
		}
		e, err := cg.DecodeYAML(t, root)
		if err != nil {
			return count, err
		}
		if err := dst.Put(ctx, e); err != nil {
			return count, errors.Wrapf(err, "failed to store %s", e.EntityRef())
		}
		count++
	}
}
