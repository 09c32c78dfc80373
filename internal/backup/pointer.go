package backup

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PointerPath returns the file recording the last uploaded root for the document at docPath:
// ".data/pool-access-db.json" maps to ".data/pool-access-db-root.txt".
func PointerPath(docPath string) string {
	ext := filepath.Ext(docPath)
	return strings.TrimSuffix(docPath, ext) + "-root.txt"
}

// ReadPointer returns the recorded root for docPath and false when no valid pointer exists.
func ReadPointer(docPath string) (common.Hash, bool, error) {
	raw, err := os.ReadFile(PointerPath(docPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.Hash{}, false, nil
		}
		return common.Hash{}, false, err
	}
	s := strings.TrimSpace(string(raw))
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return common.Hash{}, false, nil
	}
	return common.HexToHash(s), true, nil
}

// WritePointer records root as the last uploaded snapshot of docPath.
func WritePointer(docPath string, root common.Hash) error {
	p := PointerPath(docPath)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(root.Hex()), 0o644)
}
