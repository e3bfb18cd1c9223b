package hostinfo

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollect(t *testing.T) {
	info, err := Collect(context.Background())
	if err != nil {
		t.Logf("partial host facts: %v", err)
	}
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Positive(t, info.LogicalCPUs)
	assert.GreaterOrEqual(t, info.SuggestedEnvs(), 1)
}

func TestInfoString(t *testing.T) {
	info := Info{GoVersion: "go1.24.0", OS: "linux", Arch: "amd64", LogicalCPUs: 8}
	assert.Equal(t, "go1.24.0 linux/amd64, 8 CPUs", info.String())

	info.TotalMemory = 16 * 1000 * 1000 * 1000
	info.AvailableMemory = 9 * 1000 * 1000 * 1000
	assert.Equal(t, "go1.24.0 linux/amd64, 8 CPUs, 16 GB memory (9.0 GB free)", info.String())
}

func TestSuggestedEnvs(t *testing.T) {
	assert.Equal(t, 4, Info{PhysicalCPUs: 4, LogicalCPUs: 8}.SuggestedEnvs())
	assert.Equal(t, 8, Info{LogicalCPUs: 8}.SuggestedEnvs())
	assert.Equal(t, 1, Info{}.SuggestedEnvs())
}
