package dsl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/modulistica/binding"
)

var fixedNow = time.Date(2024, 5, 17, 9, 5, 30, 0, time.UTC)

func TestTemplateSubstitutesNamespaces(t *testing.T) {
	tpl, err := ParseTemplate("Pratica {obj.code} - {obj.cliente.nome} ({now:%d/%m/%Y})")
	require.NoError(t, err)

	obj := binding.Map{"code": "P-1", "cliente": binding.Map{"nome": "Rossi"}}
	out, err := tpl.Execute(NewEnv(obj, fixedNow, nil))
	require.NoError(t, err)
	assert.Equal(t, "Pratica P-1 - Rossi (17/05/2024)", out)
}

func TestTemplateMissingPathRendersEmpty(t *testing.T) {
	tpl := CompileTemplate("[{obj.cliente.ragioneSociale}]")
	out, err := tpl.Execute(NewEnv(binding.Map{}, fixedNow, nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestTemplateUnknownRootIsAnError(t *testing.T) {
	tpl := CompileTemplate("{ufficio.nome}")
	_, err := tpl.Execute(NewEnv(nil, fixedNow, nil))
	assert.Error(t, err)
}

func TestTemplateEscapesAndExtras(t *testing.T) {
	tpl := CompileTemplate("{{literal}} {title} {date} {time}")
	require.NoError(t, tpl.Err())
	out, err := tpl.Execute(NewEnv(nil, fixedNow, map[string]any{"title": "Registro", "obj": "ignored"}))
	require.NoError(t, err)
	assert.Equal(t, "{literal} Registro 2024-05-17 09:05:30", out)
}

func TestTemplateSyntaxErrors(t *testing.T) {
	for _, src := range []string{"{obj.code", "a } b", "{}", "{obj..code}"} {
		_, err := ParseTemplate(src)
		assert.Error(t, err, src)
		tpl := CompileTemplate(src)
		out, err := tpl.Execute(NewEnv(nil, fixedNow, nil))
		assert.Error(t, err, src)
		assert.Empty(t, out)
	}
}

func TestTemplateNumberSpecs(t *testing.T) {
	tpl := CompileTemplate("{obj.total:.2f} {obj.count:d}")
	out, err := tpl.Execute(NewEnv(binding.Map{"total": 12.5, "count": 3}, fixedNow, nil))
	require.NoError(t, err)
	assert.Equal(t, "12.50 3", out)

	_, err = CompileTemplate("{obj.total:%%x}").Execute(NewEnv(binding.Map{"total": 1.0}, fixedNow, nil))
	assert.Error(t, err)
}

func TestTemplatePlainTextAndEmpty(t *testing.T) {
	out, err := CompileTemplate("solo testo").Execute(nil)
	require.NoError(t, err)
	assert.Equal(t, "solo testo", out)

	out, err = CompileTemplate("").Execute(nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
