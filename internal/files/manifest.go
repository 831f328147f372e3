package files

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
)

// manifestEntry is the wire form of a File in a host platform manifest.
type manifestEntry struct {
	Type   string      `json:"type"`
	Digest string      `json:"digest,omitempty"`
	FsPath string      `json:"fsPath,omitempty"`
	Data   string      `json:"data,omitempty"` // base64
	Mode   fs.FileMode `json:"mode,omitempty"`
}

// ParseManifest decodes a JSON object mapping paths to file descriptions:
//
//	{"pages/index.js": {"type": "FileRef", "digest": "sha:...", "mode": 420}}
//
// Types FileRef, FileFsRef and FileBlob (base64 "data") are understood.
func ParseManifest(bs []byte) (Files, error) {
	var raw map[string]manifestEntry
	if err := json.Unmarshal(bs, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode file manifest: %w", err)
	}

	result := make(Files, len(raw))
	for p, e := range raw {
		if !fs.ValidPath(p) || p == "." || path.Clean(p) != p {
			return nil, fmt.Errorf("invalid path %q in file manifest", p)
		}

		switch e.Type {
		case "FileRef":
			if e.Digest == "" {
				return nil, fmt.Errorf("file %q: missing digest", p)
			}
			result[p] = &Ref{Digest: e.Digest, FileMode: e.Mode}
		case "FileFsRef":
			if e.FsPath == "" {
				return nil, fmt.Errorf("file %q: missing fsPath", p)
			}
			result[p] = &FsRef{FsPath: e.FsPath, FileMode: e.Mode}
		case "FileBlob":
			data, err := base64.StdEncoding.DecodeString(e.Data)
			if err != nil {
				return nil, fmt.Errorf("file %q: failed to decode data: %w", p, err)
			}
			result[p] = &Blob{Data: data, FileMode: e.Mode}
		default:
			return nil, fmt.Errorf("file %q: unknown type %q", p, e.Type)
		}
	}

	return result, nil
}
