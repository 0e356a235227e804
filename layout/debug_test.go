package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ByLCY/modulistica/definition"
)

func TestWriteDebugJSON(t *testing.T) {
	m := &definition.Module{
		Slug:   "hello",
		Format: a4(0),
		Fields: []definition.Field{{Kind: definition.FieldStatic, Text: "HELLO", Visible: true}},
	}
	res, err := BuildModule(nil, m, BuildOptions{Typesetter: stubTypesetter{}, Now: fixedNow})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "layout.json")
	require.NoError(t, WriteDebugJSON(res, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got struct {
		Pages []Page `json:"pages"`
		Sizes []struct {
			Page   int     `json:"page"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
			Items  int     `json:"items"`
		} `json:"sizesMM"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Pages, 1)
	require.Len(t, got.Sizes, 1)
	require.InDelta(t, 210, got.Sizes[0].Width, 1e-6)
	require.InDelta(t, 297, got.Sizes[0].Height, 1e-6)
	require.Equal(t, 1, got.Sizes[0].Items)

	require.NoError(t, WriteDebugJSON(nil, path))
}
