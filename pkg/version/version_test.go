package version_test

import (
	"encoding/json"
	"runtime"
	"testing"

	// Packages
	version "github.com/mutablelogic/go-transfer/pkg/version"
	assert "github.com/stretchr/testify/assert"
)

func Test_Version(t *testing.T) {
	assert := assert.New(t)

	t.Run("Tag", func(t *testing.T) {
		version.GitTag = "v1.2.3"
		defer func() { version.GitTag = "" }()
		assert.Equal("v1.2.3", version.Version())
	})

	t.Run("Branch", func(t *testing.T) {
		version.GitBranch = "main"
		defer func() { version.GitBranch = "" }()
		assert.Equal("main", version.Version())
	})

	t.Run("Default", func(t *testing.T) {
		assert.NotEmpty(version.Version())
	})
}

func Test_JSON(t *testing.T) {
	assert := assert.New(t)

	var info version.Info
	assert.NoError(json.Unmarshal(version.JSON("transfer"), &info))
	assert.Equal("transfer", info.Name)
	assert.Equal(runtime.Version(), info.Compiler)
	assert.Equal(version.Version(), info.Version)
}
