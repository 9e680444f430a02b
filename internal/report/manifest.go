package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/gcodelens/gcodelens/internal/version"
)

// toolName identifies this tool in the manifest and summary documents.
const toolName = "gcodelens"

// ManifestFile records one file's identity: base name, size, and SHA-256
// digest.
type ManifestFile struct {
	Name   string `json:"name"`
	Bytes  int64  `json:"bytes"`
	SHA256 string `json:"sha256"`
}

// Manifest ties a set of report files to the run that produced them. The
// digests let a consumer detect outputs that were edited after the run or
// mixed between runs.
type Manifest struct {
	RunID       string    `json:"run_id"`
	Tool        string    `json:"tool"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`

	// Input identifies the profiled file; nil for stream inputs with no
	// stable on-disk identity.
	Input *ManifestFile `json:"input,omitempty"`

	Outputs []ManifestFile `json:"outputs"`
}

// buildManifest digests the input and every written output, which is why
// the manifest is always written last.
func buildManifest(inputPath string, outputPaths []string, at time.Time) (*Manifest, error) {
	m := &Manifest{
		RunID:       uuid.NewString(),
		Tool:        toolName,
		Version:     version.Version,
		GeneratedAt: at.UTC(),
		Outputs:     make([]ManifestFile, 0, len(outputPaths)),
	}

	if inputPath != "" {
		in, err := digestFile(inputPath)
		if err != nil {
			return nil, err
		}
		m.Input = &in
	}
	for _, path := range outputPaths {
		out, err := digestFile(path)
		if err != nil {
			return nil, err
		}
		m.Outputs = append(m.Outputs, out)
	}
	return m, nil
}

func digestFile(path string) (ManifestFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("%w: %w", ErrHashingFile, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("%w: %w", ErrHashingFile, err)
	}

	return ManifestFile{
		Name:   filepath.Base(path),
		Bytes:  n,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func (m *Manifest) write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
