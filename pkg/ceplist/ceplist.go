// Package ceplist loads the raw CEP sequence from the input file and
// applies reproducible sampling.
package ceplist

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultSeed keeps samples reproducible across runs.
const DefaultSeed = 25

// Config holds loader configuration.
type Config struct {
	// Path to a TSV file with a "cep" column, optionally zip-compressed.
	Path string

	// SampleSize is the number of CEPs to draw. Zero or negative means
	// all rows.
	SampleSize int

	// Seed drives the random sample. Zero falls back to DefaultSeed.
	Seed int64
}

// Load reads the CEP column and returns a reproducible random sample of
// SampleSize raw strings. If the sample exceeds the available data it
// warns and returns everything. A missing input file is a fatal setup
// error for the run.
func Load(cfg Config) ([]string, error) {
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}

	reader, closeFn, err := openInput(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	ceps, err := readCepColumn(reader)
	if err != nil {
		return nil, fmt.Errorf("load cep list: %w", err)
	}

	if cfg.SampleSize <= 0 || cfg.SampleSize >= len(ceps) {
		if cfg.SampleSize > len(ceps) {
			log.Warn().
				Int("requested", cfg.SampleSize).
				Int("available", len(ceps)).
				Msg("Sample larger than available data, returning all rows")
		}
		return ceps, nil
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	sample := make([]string, 0, cfg.SampleSize)
	for _, idx := range rng.Perm(len(ceps))[:cfg.SampleSize] {
		sample = append(sample, ceps[idx])
	}
	return sample, nil
}

// openInput opens the TSV, unwrapping a zip container when needed.
func openInput(path string) (io.Reader, func() error, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("input file not found: %w", err)
	}

	if !strings.HasSuffix(path, ".zip") {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		return f, f.Close, nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open zip input: %w", err)
	}
	if len(zr.File) == 0 {
		zr.Close()
		return nil, nil, fmt.Errorf("zip input %s is empty", path)
	}

	inner, err := zr.File[0].Open()
	if err != nil {
		zr.Close()
		return nil, nil, fmt.Errorf("open zipped entry: %w", err)
	}

	closeFn := func() error {
		inner.Close()
		return zr.Close()
	}
	return inner, closeFn, nil
}

// readCepColumn parses the TSV and extracts the cep column as raw
// strings, leading zeros preserved.
func readCepColumn(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "cep") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("cep column not found in header %v", header)
	}

	var ceps []string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col < len(row) {
			ceps = append(ceps, row[col])
		}
	}
	return ceps, nil
}
