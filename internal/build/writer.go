package build

import (
	"errors"
	"fmt"

	"github.com/google/renameio/v2"
)

// artifact is one output file for a compiled source.
type artifact struct {
	path string
	data []byte
}

func (o *Output) artifacts(base string) []artifact {
	out := []artifact{{path: base + ExtCode, data: o.Code}}
	if o.SourceMap != nil {
		out = append(out, artifact{path: base + ExtSourceMap, data: o.SourceMap})
	}
	if o.Declarations != nil {
		out = append(out, artifact{path: base + ExtDeclarations, data: o.Declarations})
	}
	if o.DeclarationsMap != nil {
		out = append(out, artifact{path: base + ExtDeclarationsMap, data: o.DeclarationsMap})
	}
	return out
}

// writeArtifacts writes every artifact through a temporary file and an
// atomic rename, so a reader never sees a truncated file. All artifacts
// are attempted; the failures are joined.
func writeArtifacts(arts []artifact, metrics *BuildMetrics) error {
	var errs []error
	for _, a := range arts {
		if err := renameio.WriteFile(a.path, a.data, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", a.path, err))
			continue
		}
		metrics.RecordArtifact()
	}
	return errors.Join(errs...)
}
