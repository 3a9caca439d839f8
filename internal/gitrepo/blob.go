package gitrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ReadBlob returns the raw bytes of the blob identified by ref.
func (g *Gateway) ReadBlob(ctx context.Context, ref BlobRef) ([]byte, error) {
	out, err := g.git(ctx, "cat-file", "-p", string(ref)).outputBytes(g.exec)
	if err != nil {
		return nil, fmt.Errorf("cat-file -p %s: %w", ref, err)
	}
	return out, nil
}

// WritePath writes bytes to the working tree at path, creating parent
// directories as needed.
func (g *Gateway) WritePath(path string, data []byte) error {
	full := filepath.Join(g.dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Stage adds path to the index from the working tree, clearing any
// unmerged entries for that path.
func (g *Gateway) Stage(ctx context.Context, path string) error {
	if err := g.git(ctx, "add", "--", path).run(g.exec); err != nil {
		return fmt.Errorf("add %s: %w", path, err)
	}
	return nil
}
