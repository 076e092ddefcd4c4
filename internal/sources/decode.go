package sources

import (
	"errors"
	"fmt"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/tabular"
)

// decoded is a payload decoded into a table
type decoded struct {
	table  *tabular.Table
	member string
}

// decode interprets data according to the source's declared file type.
// The returned error is an *Error carrying the matching kind.
func decode(source *config.SourceConfig, data []byte) (*decoded, error) {
	if source.FileType != config.FileTypeZIP {
		table, err := decodeFile(source.FileType, source.SheetName, data)
		if err != nil {
			return nil, NewError(ErrFormat, source.Name, err)
		}
		return &decoded{table: table}, nil
	}

	member, err := tabular.ExtractMember(data, source.ZipTargetFile)
	if err != nil {
		if errors.Is(err, tabular.ErrNoMatchingMember) || errors.Is(err, tabular.ErrAmbiguousMember) {
			return nil, NewError(ErrAmbiguousMatch, source.Name, err)
		}
		return nil, NewError(ErrFormat, source.Name, err)
	}

	table, err := decodeFile(memberFileType(member), source.SheetName, member.Data)
	if err != nil {
		return nil, NewError(ErrFormat, source.Name, fmt.Errorf("archive member %s: %w", member.Name, err))
	}
	return &decoded{table: table, member: member.Name}, nil
}

func decodeFile(fileType, sheet string, data []byte) (*tabular.Table, error) {
	switch fileType {
	case config.FileTypeCSV:
		return tabular.DecodeCSV(data)
	case config.FileTypeXLSX:
		if sheet == "" {
			return nil, errors.New("sheet_name is required for xlsx")
		}
		return tabular.DecodeXLSX(data, sheet)
	case config.FileTypeODS:
		if sheet == "" {
			return nil, errors.New("sheet_name is required for ods")
		}
		return tabular.DecodeODS(data, sheet)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
}

// memberFileType maps an archive member to the decoder for its extension.
// Anything that is not a spreadsheet is read as CSV.
func memberFileType(m *tabular.Member) string {
	switch m.Ext() {
	case config.FileTypeXLSX:
		return config.FileTypeXLSX
	case config.FileTypeODS:
		return config.FileTypeODS
	default:
		return config.FileTypeCSV
	}
}
