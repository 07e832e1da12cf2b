// SPDX-License-Identifier: Apache-2.0

package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNumberIsValidSemver(t *testing.T) {
	v, err := Semver()
	require.NoError(t, err)
	assert.Equal(t, Number(), v.String())
}

func TestCheckMinVersionRequirement(t *testing.T) {
	tests := []struct {
		name    string
		version string
		minimum string
		wantErr bool
	}{
		{name: "above minimum", version: "1.2.3", minimum: "1.0.0"},
		{name: "equal to minimum", version: "1.0.0", minimum: "1.0.0"},
		{name: "below minimum", version: "0.9.0", minimum: "1.0.0", wantErr: true},
		{name: "prerelease below release", version: "1.0.0-rc.1", minimum: "1.0.0", wantErr: true},
		{name: "garbage version", version: "not-a-version", minimum: "1.0.0", wantErr: true},
		{name: "garbage minimum", version: "1.0.0", minimum: "not-a-version", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckMinVersionRequirement(tc.version, tc.minimum)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInfoFormat(t *testing.T) {
	info := Get()
	assert.Equal(t, Number(), info.Number)
	assert.Equal(t, Commit(), info.Commit)

	out, err := info.Format(FormatYAML)
	require.NoError(t, err)
	var fromYAML Info
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, info, fromYAML)

	out, err = info.Format(FormatJSON)
	require.NoError(t, err)
	var fromJSON Info
	require.NoError(t, json.Unmarshal([]byte(out), &fromJSON))
	assert.Equal(t, info, fromJSON)

	_, err = info.Format("xml")
	assert.Error(t, err)
}

func TestBuildModeDefaultsToDev(t *testing.T) {
	assert.Equal(t, "dev", BuildMode())
	assert.False(t, IsReleaseBuild())
}
