// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.7, c.Anonymizer.Threshold)
	assert.Equal(t, 4, c.Processing.Workers)
	assert.Equal(t, "deu", c.OCR.Language)
	assert.Equal(t, 300.0, c.OCR.FallbackDPI)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
predictor:
  url: https://api.example.com
  api_key: geheim
processing:
  workers: 2
  data_dir: /var/lib/medscrub
ocr:
  language: deu+eng
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", c.Predictor.URL)
	assert.Equal(t, 2, c.Processing.Workers)
	assert.Equal(t, "deu+eng", c.OCR.Language)
	// Untouched values keep their defaults.
	assert.Equal(t, 0.7, c.Anonymizer.Threshold)
	assert.Equal(t, filepath.Join("/var/lib/medscrub", "medscrub.db"), c.DatabasePath())
	assert.Equal(t, filepath.Join("/var/lib/medscrub", "blobs"), c.BlobDir())
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("predictor:\n  url: https://from-yaml\n"), 0o644))

	t.Setenv("MEDSCRUB_PREDICTOR_URL", "https://from-env")
	t.Setenv("MEDSCRUB_WORKERS", "8")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env", c.Predictor.URL)
	assert.Equal(t, 8, c.Processing.Workers)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Anonymizer.Threshold = 1.5
	assert.Error(t, c.Validate())

	c = Default()
	c.Processing.Workers = 0
	assert.Error(t, c.Validate())

	c = Default()
	c.OCR.FallbackDPI = -1
	assert.Error(t, c.Validate())

	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
