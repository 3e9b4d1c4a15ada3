// Package version はビルド時に埋め込まれるバージョン情報を提供する
package version

// ldflags の -X で上書きされる
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info はバージョン情報
type Info struct {
	Version string
	Commit  string
	Date    string
}

// Get は現在のバージョン情報を返す
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}
