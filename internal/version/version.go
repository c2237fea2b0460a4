package version

import (
	"fmt"
	"runtime/debug"
)

// Заполняются через -ldflags "-X .../internal/version.version=v1.2.0".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// BuildInfo содержит сведения о сборке для логов и health-ответа.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", b.Version, b.Commit, b.Date)
}

var readBuildInfo = debug.ReadBuildInfo

// Get возвращает сведения о сборке. Если commit и date не заданы через ldflags,
// они берутся из VCS-меток, которые go build вшивает в бинарник.
func Get() BuildInfo {
	info := BuildInfo{Version: version, Commit: commit, Date: date}
	if info.Commit != "unknown" && info.Date != "unknown" {
		return info
	}
	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "unknown" && s.Value != "":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.Date == "unknown" && s.Value != "":
			info.Date = s.Value
		}
	}
	return info
}

func String() string { return Get().String() }
