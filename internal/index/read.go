package index

import (
	"fmt"
	"io/fs"
	"os"

	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
	"github.com/tbenton/vscode-cfml/internal/types"
)

// ReadFile reads path, refusing files larger than maxSize bytes (no limit
// when maxSize <= 0). Failures are *errors.FileError.
func ReadFile(path string, maxSize int64) ([]byte, fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, cfmlerrors.NewFileError("stat", path, err)
	}
	if info.IsDir() {
		return nil, nil, cfmlerrors.NewFileError("read", path, fmt.Errorf("is a directory"))
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, nil, cfmlerrors.NewFileError("read", path,
			fmt.Errorf("%w: %d bytes", cfmlerrors.ErrFileTooLarge, info.Size()))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, cfmlerrors.NewFileError("read", path, err)
	}
	if isBinary(content) {
		return nil, nil, cfmlerrors.NewFileError("read", path, cfmlerrors.ErrBinaryFile)
	}
	return content, info, nil
}

// binarySniffSize is how much of a file isBinary inspects
const binarySniffSize = 8 * 1024

// isBinary reports whether the head of data holds a NUL byte or is more
// than 30% control characters
func isBinary(data []byte) bool {
	if len(data) > binarySniffSize {
		data = data[:binarySniffSize]
	}
	if len(data) == 0 {
		return false
	}
	control := 0
	for _, b := range data {
		if b == 0 {
			return true
		}
		if b < 9 || (b > 13 && b < 32) || b == 127 {
			control++
		}
	}
	return float64(control)/float64(len(data)) > 0.3
}

// ReadDocument reads path into a document snapshot
func ReadDocument(path string, maxSize int64) (*types.Document, error) {
	content, _, err := ReadFile(path, maxSize)
	if err != nil {
		return nil, err
	}
	return types.NewDocument(path, string(content)), nil
}
