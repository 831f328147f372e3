package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	DefaultEntrypoint  = "package.json"
	DefaultOutputDir   = ".now-next"
	DefaultBuildScript = "now-build"
	DefaultRegistry    = "//registry.npmjs.org/"
	DefaultCacheSize   = 256
)

// DefaultIgnore lists source paths never read into the build input.
var DefaultIgnore = []string{".git/**", "**node_modules/**", DefaultOutputDir + "/**"}

// Root is the top-level configuration of a build.
type Root struct {
	Entrypoint   string   `json:"entrypoint,omitempty"`
	WorkPath     string   `json:"work_path,omitempty"` // temporary directory if empty
	OutputDir    string   `json:"output_dir,omitempty"`
	Workers      int      `json:"workers,omitempty"`
	BuildScript  string   `json:"build_script,omitempty"`
	Npm          string   `json:"npm,omitempty"`
	Registry     string   `json:"registry,omitempty"`
	NpmAuthToken Secret   `json:"npm_auth_token,omitempty"`
	LauncherDir  string   `json:"launcher_dir,omitempty"`
	Timeout      Duration `json:"timeout,omitzero"`
	Store        *Store   `json:"store,omitempty"`
	CacheSize    int      `json:"cache_size,omitempty"`
	Publish      *Publish `json:"publish,omitempty"`
	Ignore       []string `json:"ignore,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// SetDefaults fills in every unset field.
func (r *Root) SetDefaults() {
	if r.Entrypoint == "" {
		r.Entrypoint = DefaultEntrypoint
	}
	if r.OutputDir == "" {
		r.OutputDir = DefaultOutputDir
	}
	if r.Workers <= 0 {
		r.Workers = runtime.NumCPU()
	}
	if r.BuildScript == "" {
		r.BuildScript = DefaultBuildScript
	}
	if r.Registry == "" {
		r.Registry = DefaultRegistry
	}
	if r.CacheSize == 0 && r.Store != nil {
		r.CacheSize = DefaultCacheSize
	}
	if r.Ignore == nil {
		r.Ignore = DefaultIgnore
	}
}

func (r *Root) Validate() error {
	if r.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	if r.CacheSize < 0 {
		return errors.New("cache_size must not be negative")
	}
	if err := r.Store.validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := r.Publish.validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Store configures where content-addressable input files are fetched from.
type Store struct {
	AmazonS3 *AmazonS3 `json:"amazon_s3,omitempty"`
	HTTP     *HTTP     `json:"http,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (s *Store) validate() error {
	if s == nil {
		return nil
	}
	switch {
	case s.AmazonS3 != nil && s.HTTP != nil:
		return errors.New("only one of amazon_s3 and http may be set")
	case s.AmazonS3 != nil:
		return s.AmazonS3.validate()
	case s.HTTP != nil:
		return s.HTTP.validate()
	default:
		return errors.New("one of amazon_s3 and http is required")
	}
}

// Publish configures where build output is uploaded to.
type Publish struct {
	AmazonS3 *AmazonS3 `json:"amazon_s3,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (p *Publish) validate() error {
	if p == nil {
		return nil
	}
	if p.AmazonS3 == nil {
		return errors.New("amazon_s3 is required")
	}
	return p.AmazonS3.validate()
}

// AmazonS3 defines an Amazon S3-compatible bucket. Objects live below Prefix.
type AmazonS3 struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`
	URL    string `json:"url,omitempty"` // for S3-compatible services and tests

	_ struct{} `additionalProperties:"false"`
}

func (a *AmazonS3) validate() error {
	if a.Bucket == "" {
		return errors.New("amazon s3 bucket is required")
	}
	return nil
}

// HTTP defines a content server answering GET <url>/<digest>.
type HTTP struct {
	URL   string `json:"url"`
	Token Secret `json:"token,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (h *HTTP) validate() error {
	if h.URL == "" {
		return errors.New("http url is required")
	}
	return nil
}

// Secret is a configuration string that may reference environment variables
// as ${NAME}. References are expanded on use, never when parsing.
type Secret string

func (s Secret) Value() string {
	return os.ExpandEnv(string(s))
}

// Instead of marshaling and unmarshaling as int64 it uses strings, like "5m" or "0.5s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	val, err := time.ParseDuration(str)
	*d = Duration(val)
	return err
}

func (d *Duration) UnmarshalYAML(bs []byte) error {
	var s string
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return err
	}
	val, err := time.ParseDuration(s)
	*d = Duration(val)
	return err
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Validate checks raw YAML against the configuration schema.
func Validate(data []byte) error {
	var config any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return err
	}

	return rootSchema.Validate(config)
}

func Parse(bs []byte) (*Root, error) {
	if err := Validate(bs); err != nil {
		return nil, err
	}

	var root Root
	if err := yaml.Unmarshal(bs, &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := root.Validate(); err != nil {
		return nil, err
	}

	return &root, nil
}

// Load parses the configuration files, later files overriding earlier ones.
func Load(filenames ...string) (*Root, error) {
	switch len(filenames) {
	case 0:
		return nil, errors.New("no configuration file given")
	case 1:
		bs, err := os.ReadFile(filenames[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filenames[0], err)
		}
		return Parse(bs)
	}

	bs, err := Merge(filenames, false)
	if err != nil {
		return nil, err
	}
	return Parse(bs)
}
