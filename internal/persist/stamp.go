package persist

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/lri/internal/types"
)

// StampFiles records what each route-bearing file looks like on disk right
// now: its mtime plus an xxhash64 content digest. The digest catches edits
// that preserve the timestamp; the mtime alone decides cheap drift checks.
func StampFiles(root string, paths []string) map[string]types.FileStamp {
	stamps := make(map[string]types.FileStamp, len(paths))

	for _, rel := range paths {
		abs := filepath.Join(root, rel)
		info, err := os.Stat(abs)
		if err != nil {
			continue
		}
		stamp := types.FileStamp{ModTime: info.ModTime()}
		if content, err := os.ReadFile(abs); err == nil {
			stamp.Digest = xxhash.Sum64(content)
		}
		stamps[rel] = stamp
	}

	return stamps
}

// Drifted compares saved stamps against the current disk state and returns
// the files that changed, appeared under a saved path, or disappeared.
// A file counts as unchanged only when the mtime matches; when the mtime
// moved but the digest still matches, the content is identical and the file
// is not reported.
func Drifted(root string, saved map[string]types.FileStamp) []string {
	var drifted []string

	for rel, stamp := range saved {
		abs := filepath.Join(root, rel)
		info, err := os.Stat(abs)
		if err != nil {
			drifted = append(drifted, rel)
			continue
		}
		if info.ModTime().Equal(stamp.ModTime) {
			continue
		}
		if stamp.Digest != 0 {
			if content, err := os.ReadFile(abs); err == nil && xxhash.Sum64(content) == stamp.Digest {
				continue
			}
		}
		drifted = append(drifted, rel)
	}

	return drifted
}
