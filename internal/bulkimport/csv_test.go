package bulkimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "olympreg/pkg/domain-errors"
)

func TestDecodeCSV(t *testing.T) {
	rows, err := DecodeCSV([]byte("Code,Name\nZZA,Zedland\nZZB,Whyland\n"), ',')
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ZZA", rows[0]["Code"])
	assert.Equal(t, "Whyland", rows[1]["Name"])
}

func TestDecodeCSVByteOrderMark(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Code,Name\nZZA,Zedland\n")...)
	rows, err := DecodeCSV(data, ',')
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ZZA", rows[0]["Code"])
}

func TestDecodeCSVSemicolonDelimiter(t *testing.T) {
	rows, err := DecodeCSV([]byte("Code;Name\nZZA;Zedland, The\n"), ';')
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Zedland, The", rows[0]["Name"])
}

func TestDecodeCSVShortRows(t *testing.T) {
	rows, err := DecodeCSV([]byte("Code,Name,Leader Email\nZZA,Zedland\n"), ',')
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, present := rows[0]["Leader Email"]
	assert.False(t, present)
}

func TestDecodeCSVBlankCellsAbsent(t *testing.T) {
	rows, err := DecodeCSV([]byte("Code,Name\n,Zedland\n"), ',')
	require.NoError(t, err)
	_, present := rows[0]["Code"]
	assert.False(t, present)
	assert.Equal(t, "Zedland", rows[0]["Name"])
}

func TestDecodeCSVInvalidUTF8(t *testing.T) {
	_, err := DecodeCSV([]byte{'C', 0xFF, 0xFE, '\n'}, ',')
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeFormatInvalid))
	// Whole-file problems carry no row prefix.
	assert.NotContains(t, err.Error(), "row ")
}

func TestCommaSplitUnique(t *testing.T) {
	got, err := commaSplit("Other Roles", "Guide, Jury Chair")
	require.NoError(t, err)
	assert.Equal(t, []string{"Guide", "Jury Chair"}, got)

	_, err = commaSplit("Other Roles", "Guide,Guide")
	require.Error(t, err)
	assert.Equal(t, "duplicate entries in Other Roles", err.Error())
}
