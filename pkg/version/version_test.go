package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()
	require.NotEmpty(t, info.Version)
	require.NotEmpty(t, info.GitCommit)
	require.NotEmpty(t, info.GoVersion)
	require.True(t, strings.Contains(info.Platform, "/"))
}

func TestGetParsesBuildDate(t *testing.T) {
	original := BuildDate
	defer func() { BuildDate = original }()

	BuildDate = "2026-08-25T10:00:00Z"
	info := Get()
	want, _ := time.Parse(time.RFC3339, BuildDate)
	require.True(t, info.BuildTime.Equal(want))
}

func TestGetLeavesBuildTimeZeroForUnknownDate(t *testing.T) {
	original := BuildDate
	defer func() { BuildDate = original }()

	BuildDate = "unknown"
	require.True(t, Get().BuildTime.IsZero())
}

func TestString(t *testing.T) {
	info := BuildInfo{Version: "1.2.3", GitCommit: "abc1234", BuildDate: "2026-08-25T10:00:00Z"}
	require.Equal(t, "forgecred 1.2.3 (commit: abc1234, built: 2026-08-25T10:00:00Z)", info.String())
}
