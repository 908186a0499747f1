//go:build property

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestGlobProperties covers pattern partitioning and the documented lack
// of deduplication across overlapping include patterns.
func TestGlobProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("partition keeps every pattern exactly once", prop.ForAll(
		func(names []string, negate []bool) bool {
			var patterns, wantInc, wantExc []string
			for i, n := range names {
				p := "pkgs/" + n
				if i < len(negate) && negate[i] {
					patterns = append(patterns, "!"+p)
					wantExc = append(wantExc, p)
				} else {
					patterns = append(patterns, p)
					wantInc = append(wantInc, p)
				}
			}
			g := FromPatterns(patterns)
			return strings.Join(g.Include, ",") == strings.Join(wantInc, ",") &&
				strings.Join(g.Exclude, ",") == strings.Join(wantExc, ",")
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("overlapping includes yield duplicates", prop.ForAll(
		func(pkgCount, repeats int) bool {
			root, err := os.MkdirTemp("", "ws-prop")
			if err != nil {
				return false
			}
			defer os.RemoveAll(root)

			for i := 0; i < pkgCount; i++ {
				dir := filepath.Join(root, "packages", fmt.Sprintf("p%d", i))
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return false
				}
				if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644); err != nil {
					return false
				}
			}

			patterns := make([]string, repeats)
			for i := range patterns {
				patterns[i] = "packages/*"
			}

			seen := map[string]int{}
			for dir, err := range FromPatterns(patterns).Packages(root) {
				if err != nil {
					return false
				}
				seen[dir]++
			}
			if len(seen) != pkgCount {
				return false
			}
			for _, n := range seen {
				if n != repeats {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 5),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
