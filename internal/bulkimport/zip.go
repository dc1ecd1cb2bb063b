package bulkimport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"

	dErrors "olympreg/pkg/domain-errors"
)

// maxAttachmentSize bounds one decompressed archive entry.
const maxAttachmentSize = 16 << 20

// ReadArchive extracts an uploaded attachment archive into filename keyed
// contents. Entries are addressed by base name, matching how Photo and Flag
// columns reference them. Archive problems are whole-file errors.
func ReadArchive(data []byte) (map[string][]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeFormatInvalid,
			fmt.Sprintf("malformed attachment archive: %v", err), err)
	}
	out := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeFormatInvalid,
				fmt.Sprintf("malformed attachment archive: %v", err), err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxAttachmentSize+1))
		rc.Close()
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeFormatInvalid,
				fmt.Sprintf("malformed attachment archive: %v", err), err)
		}
		if len(content) > maxAttachmentSize {
			return nil, dErrors.Newf(dErrors.CodeFormatInvalid,
				"attachment %s too large", f.Name)
		}
		out[path.Base(f.Name)] = content
	}
	return out, nil
}
