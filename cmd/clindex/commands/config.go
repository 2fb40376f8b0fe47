package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asarangaram/clmediakit"
	"github.com/asarangaram/clmediakit/blobstore"
	"github.com/asarangaram/clmediakit/blobstore/minio"
	"github.com/asarangaram/clmediakit/blobstore/s3"
	"github.com/asarangaram/clmediakit/persistence"
)

// Config is the clindex configuration file. Zero values keep the library defaults.
type Config struct {
	Index               string        `yaml:"index"`
	Dimension           int           `yaml:"dimension"`
	Capacity            int           `yaml:"capacity"`
	M                   int           `yaml:"m"`
	EFConstruction      int           `yaml:"ef_construction"`
	EFSearch            int           `yaml:"ef_search"`
	Compression         string        `yaml:"compression"`
	VectorEncoding      string        `yaml:"vector_encoding"`
	PersistMode         string        `yaml:"persist_mode"`
	FlushInterval       time.Duration `yaml:"flush_interval"`
	CompactionThreshold float64       `yaml:"compaction_threshold"`
	Seed                *int64        `yaml:"seed"`
	Log                 LogConfig     `yaml:"log"`
	Mirror              MirrorConfig  `yaml:"mirror"`
}

// LogConfig selects the log level and format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MirrorConfig lists the blob stores that receive copies of the index file.
type MirrorConfig struct {
	Name    string        `yaml:"name"`
	Restore bool          `yaml:"restore"`
	Local   string        `yaml:"local"`
	S3      *S3Config     `yaml:"s3"`
	MinIO   *minio.Config `yaml:"minio"`
}

// S3Config configures an S3 mirror. Credentials come from the default AWS chain.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// LoadConfig reads a YAML configuration file. Unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer f.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Options converts the index settings into clmediakit options.
func (c *Config) Options() ([]clmediakit.Option, error) {
	var opts []clmediakit.Option
	if c.Dimension != 0 {
		opts = append(opts, clmediakit.WithDimension(c.Dimension))
	}
	if c.Capacity != 0 {
		opts = append(opts, clmediakit.WithCapacity(c.Capacity))
	}
	if c.M != 0 {
		opts = append(opts, clmediakit.WithM(c.M))
	}
	if c.EFConstruction != 0 {
		opts = append(opts, clmediakit.WithEFConstruction(c.EFConstruction))
	}
	if c.EFSearch != 0 {
		opts = append(opts, clmediakit.WithEFSearch(c.EFSearch))
	}
	if c.Compression != "" {
		comp, err := persistence.ParseCompression(c.Compression)
		if err != nil {
			return nil, err
		}
		opts = append(opts, clmediakit.WithCompression(comp))
	}
	if c.VectorEncoding != "" {
		enc, err := persistence.ParseVectorEncoding(c.VectorEncoding)
		if err != nil {
			return nil, err
		}
		opts = append(opts, clmediakit.WithVectorEncoding(enc))
	}
	if c.PersistMode != "" {
		mode, err := clmediakit.ParsePersistMode(c.PersistMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, clmediakit.WithPersistMode(mode))
	}
	if c.FlushInterval != 0 {
		opts = append(opts, clmediakit.WithFlushInterval(c.FlushInterval))
	}
	if c.CompactionThreshold != 0 {
		opts = append(opts, clmediakit.WithCompactionThreshold(c.CompactionThreshold))
	}
	if c.Seed != nil {
		opts = append(opts, clmediakit.WithRandomSeed(*c.Seed))
	}
	if c.Mirror.Name != "" {
		opts = append(opts, clmediakit.WithMirrorName(c.Mirror.Name))
	}
	if c.Mirror.Restore {
		opts = append(opts, clmediakit.WithRestoreFromMirror(true))
	}
	return opts, nil
}

// Mirrors builds the configured mirror stores in the order local, s3, minio.
func (c *Config) Mirrors(ctx context.Context) ([]blobstore.Store, error) {
	var stores []blobstore.Store
	if c.Mirror.Local != "" {
		stores = append(stores, blobstore.NewLocalStore(c.Mirror.Local))
	}
	if s := c.Mirror.S3; s != nil {
		if s.Bucket == "" {
			return nil, errors.New("mirror.s3.bucket is required")
		}
		var s3Opts []s3.Option
		if s.Prefix != "" {
			s3Opts = append(s3Opts, s3.WithPrefix(s.Prefix))
		}
		if s.Region != "" {
			s3Opts = append(s3Opts, s3.WithRegion(s.Region))
		}
		if s.Endpoint != "" {
			s3Opts = append(s3Opts, s3.WithEndpoint(s.Endpoint))
		}
		store, err := s3.New(ctx, s.Bucket, s3Opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 mirror: %w", err)
		}
		stores = append(stores, store)
	}
	if m := c.Mirror.MinIO; m != nil {
		store, err := minio.Dial(*m)
		if err != nil {
			return nil, fmt.Errorf("failed to create minio mirror: %w", err)
		}
		stores = append(stores, store)
	}
	return stores, nil
}
