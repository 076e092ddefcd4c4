package tabular

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// MaxMemberSize bounds the decompressed size of an extracted archive member (1GB)
const MaxMemberSize = 1 << 30

// Member is a file extracted from an archive
type Member struct {
	Name string
	Data []byte
}

// Ext returns the lower-cased extension of the member without the dot
func (m *Member) Ext() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(m.Name)), ".")
}

// ExtractMember returns the single archive member matching pattern.
// The pattern is matched against both the member's base name and its full
// path inside the archive. Directory entries are ignored.
func ExtractMember(data []byte, pattern string) (*Member, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	var matches []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		ok, err := matchMember(pattern, f.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid member pattern %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, f)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w %q", ErrNoMatchingMember, pattern)
	case 1:
	default:
		names := make([]string, len(matches))
		for i, f := range matches {
			names[i] = f.Name
		}
		return nil, fmt.Errorf("%w %q: %s", ErrAmbiguousMember, pattern, strings.Join(names, ", "))
	}

	return readMember(matches[0])
}

func matchMember(pattern, name string) (bool, error) {
	ok, err := path.Match(pattern, path.Base(name))
	if err != nil || ok {
		return ok, err
	}
	return path.Match(pattern, name)
}

func readMember(f *zip.File) (*Member, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive member %s: %w", f.Name, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(rc, MaxMemberSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive member %s: %w", f.Name, err)
	}
	if len(data) > MaxMemberSize {
		return nil, fmt.Errorf("archive member %s exceeds maximum size of %d bytes", f.Name, MaxMemberSize)
	}
	return &Member{Name: f.Name, Data: data}, nil
}
