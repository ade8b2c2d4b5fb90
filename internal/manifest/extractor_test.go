package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricorephp/pricore/internal/versions"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(versions.NewComposerPolicy())

	testCases := []struct {
		name        string
		raw         string
		version     string
		wantName    string
		wantInvalid bool
	}{
		{
			name:     "valid manifest at tag",
			raw:      `{"name": "acme/widget", "description": "widgets", "require": {"php": ">=8.1"}}`,
			version:  "1.2.0",
			wantName: "acme/widget",
		},
		{
			name:     "valid manifest at branch",
			raw:      `{"name": "acme/widget"}`,
			version:  "dev-main",
			wantName: "acme/widget",
		},
		{
			name:        "malformed json",
			raw:         `{"name": "acme/widget"`,
			version:     "1.0.0",
			wantInvalid: true,
		},
		{
			name:        "missing package name",
			raw:         `{"description": "no name here"}`,
			version:     "1.0.0",
			wantInvalid: true,
		},
		{
			name:        "version not normalizable",
			raw:         `{"name": "acme/widget"}`,
			version:     "not-a-version",
			wantInvalid: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			meta, err := extractor.Extract([]byte(tc.raw), tc.version)
			if tc.wantInvalid {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantName, meta.Name)
			assert.Equal(t, tc.version, meta.Version)
			assert.NotEmpty(t, meta.NormalizedVersion)
			assert.JSONEq(t, tc.raw, string(meta.Payload))
		})
	}
}
