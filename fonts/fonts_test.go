package fonts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariantBuiltinFamilies(t *testing.T) {
	cases := []struct {
		base         string
		bold, italic bool
		want         string
	}{
		{"Helvetica", false, false, "Helvetica"},
		{"Helvetica", true, false, "Helvetica-Bold"},
		{"Helvetica", false, true, "Helvetica-Oblique"},
		{"Helvetica-Bold", true, true, "Helvetica-BoldOblique"},
		{"Times-Roman", true, false, "Times-Bold"},
		{"times", false, true, "Times-Italic"},
		{"Courier", true, true, "Courier-BoldOblique"},
		{"", true, false, "Helvetica-Bold"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Variant(tc.base, tc.bold, tc.italic), "base=%q bold=%v italic=%v", tc.base, tc.bold, tc.italic)
	}
}

func TestVariantCustomFont(t *testing.T) {
	Register("Brand", goregularStub())
	require.Equal(t, "Brand", Variant("Brand", true, false), "没有注册粗体变体时应返回原字体")

	Register("Brand-Bold", goregularStub())
	require.Equal(t, "Brand-Bold", Variant("Brand", true, false))
}

func TestLoad(t *testing.T) {
	for _, name := range []string{"Helvetica", "Times-BoldItalic", "Courier-Oblique"} {
		data, err := Load(name)
		require.NoError(t, err, name)
		require.NotEmpty(t, data, name)
	}
	_, err := Load("NoSuchFont")
	require.Error(t, err)
	require.False(t, Known("NoSuchFont"))
}

func TestRegisterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.ttf")
	require.NoError(t, os.WriteFile(path, goregularStub(), 0o644))
	require.NoError(t, RegisterFile("FromFile", path))
	require.True(t, Known("FromFile"))
	require.Contains(t, Names(), "FromFile")

	require.Error(t, RegisterFile("Missing", filepath.Join(t.TempDir(), "missing.ttf")))
}

func goregularStub() []byte {
	data, _ := Load("Helvetica")
	return data
}
