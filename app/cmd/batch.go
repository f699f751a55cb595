package cmd

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Semior001/opdsnet/app/network"
)

// Batch is a set of requests dispatched together.
type Batch struct {
	Defaults BatchDefaults  `yaml:"defaults"`
	Requests []BatchRequest `yaml:"requests"`
}

// BatchDefaults are applied to each request of the batch that doesn't
// set the value itself.
type BatchDefaults struct {
	Dir      string `yaml:"dir"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Insecure bool   `yaml:"insecure"`
}

// BatchRequest is a single request of the batch.
type BatchRequest struct {
	URL        string       `yaml:"url"`
	File       string       `yaml:"file"`
	Post       []network.KV `yaml:"post"`
	User       string       `yaml:"user"`
	Password   string       `yaml:"password"`
	Insecure   bool         `yaml:"insecure"`
	NoRedirect bool         `yaml:"no_redirect"`
	// Detached requests are reported to the log once finished,
	// their errors don't fail the batch.
	Detached bool `yaml:"detached"`
}

func loadBatch(file string) (Batch, error) {
	data, err := os.ReadFile(file) //nolint:gosec // path is given by the user
	if err != nil {
		return Batch{}, fmt.Errorf("read file: %w", err)
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Batch{}, fmt.Errorf("parse yaml: %w", err)
	}

	b.setDefaults()

	if err := b.validate(); err != nil {
		return Batch{}, fmt.Errorf("invalid batch %s: %w", file, err)
	}

	return b, nil
}

func (b *Batch) setDefaults() {
	for i := range b.Requests {
		r := &b.Requests[i]
		r.URL = strings.TrimSpace(r.URL)

		if r.User == "" && r.Password == "" {
			r.User, r.Password = b.Defaults.User, b.Defaults.Password
		}
		r.Insecure = r.Insecure || b.Defaults.Insecure

		if r.File != "" && b.Defaults.Dir != "" && !filepath.IsAbs(r.File) {
			r.File = filepath.Join(b.Defaults.Dir, r.File)
		}
	}
}

func (b *Batch) validate() error {
	if len(b.Requests) == 0 {
		return errors.New("no requests")
	}

	files := map[string]int{}
	for i, r := range b.Requests {
		if r.URL == "" {
			return fmt.Errorf("request #%d: url is required", i+1)
		}

		for _, kv := range r.Post {
			if kv.Key == "" {
				return fmt.Errorf("request #%d: post field without a key", i+1)
			}
		}

		if r.Password != "" && r.User == "" {
			return fmt.Errorf("request #%d: password without a user", i+1)
		}

		if r.File == "" {
			continue
		}

		if j, ok := files[r.File]; ok {
			return fmt.Errorf("request #%d: file %s is already written by request #%d", i+1, r.File, j+1)
		}
		files[r.File] = i
	}

	return nil
}

// batchOf makes a batch out of plain URLs, the files are named after the
// last path segment when dir is set.
func batchOf(urls []string, dir string) Batch {
	b := Batch{Defaults: BatchDefaults{Dir: dir}}
	for i, u := range urls {
		r := BatchRequest{URL: u}
		if dir != "" {
			r.File = fileName(u, i)
		}
		b.Requests = append(b.Requests, r)
	}
	b.setDefaults()
	return b
}

func fileName(u string, idx int) string {
	u = strings.TrimSpace(u)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}

	name := path.Base(strings.TrimRight(u, "/"))
	if name == "" || name == "." || name == "/" || strings.Contains(name, ":") {
		return fmt.Sprintf("response-%d", idx+1)
	}

	return fmt.Sprintf("%d-%s", idx+1, name)
}
