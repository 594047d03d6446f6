package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/goConsole/permission"
	"github.com/MrEthical07/goConsole/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadingAndErrorSurfaces(t *testing.T) {
	v := New(nil)

	v.ShowLoading("hr")
	txt, err := Text(v.Content())
	require.NoError(t, err)
	assert.Equal(t, "Loading Hr... Fetching module data.", txt)

	v.ShowError("billing", errors.New("status 500"))
	txt, err = Text(v.Content())
	require.NoError(t, err)
	assert.Equal(t, "Error Could not load the Billing module. Please try again later.", txt)
	assert.Contains(t, v.Content(), `class="module-error"`)

	v.ShowFragment("crm", "<section id=\"crm\">CRM</section>")
	assert.Equal(t, "<section id=\"crm\">CRM</section>", v.Content())
}

func TestDeniedBecomesNotice(t *testing.T) {
	v := New(nil)
	v.ShowLoading("hr")
	before := v.Content()

	v.ShowDenied(&permission.AccessDeniedError{Module: "finance", Capability: "finance.view", Role: "Sales Rep"})
	assert.Equal(t, before, v.Content())
	notices := v.Notices()
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "Required permission: finance.view")
}

func TestResultsAreEscaped(t *testing.T) {
	v := New(nil)
	v.ShowResults("x", []search.Scored{
		{Record: search.Person{ID: "EMP-1", Name: "<script>alert(1)</script>", Department: "R&D"}, Score: 50},
		{Record: search.Invoice{ID: "INV-9", Customer: "Acme"}, Score: 25, Locked: true},
	})

	markup, open := v.Panel()
	assert.True(t, open)
	assert.NotContains(t, markup, "<script>")
	assert.Contains(t, markup, "&lt;script&gt;")
	assert.Contains(t, markup, "R&amp;D")
	assert.Contains(t, markup, `data-locked="true"`)
	assert.Contains(t, markup, `data-module="finance"`)
	assert.Equal(t, 2, strings.Count(markup, `class="search-result"`))

	v.ClosePanel()
	_, open = v.Panel()
	assert.False(t, open)
}

func TestEmptyPanelAndInput(t *testing.T) {
	v := New(nil)
	v.ShowEmpty("zzz")
	markup, open := v.Panel()
	assert.True(t, open)
	txt, err := Text(markup)
	require.NoError(t, err)
	assert.Equal(t, search.EmptyMessage, txt)

	v.SetInput("query")
	v.FocusInput()
	value, focused := v.Input()
	assert.Equal(t, "query", value)
	assert.True(t, focused)
}

func TestNavigation(t *testing.T) {
	markup := Navigation([]permission.Affordance{
		{ID: "hr-nav", Module: "hr", Active: true},
		{ID: "finance-nav", Module: "finance", Requirement: "finance.view", Locked: true},
		{ID: "crm-header", Module: "crm", Placement: permission.PlacementHeader, Label: "Sales"},
	})
	assert.Contains(t, markup, `class="sidebar-item active"`)
	assert.Contains(t, markup, `class="sidebar-item locked"`)
	assert.Contains(t, markup, `data-permission="finance.view"`)
	assert.Contains(t, markup, `class="lock-icon"`)
	assert.Contains(t, markup, `class="header-link"`)

	txt, err := Text(markup)
	require.NoError(t, err)
	assert.Equal(t, "Hr Finance Sales", txt)
}

func TestTextSkipsScripts(t *testing.T) {
	txt, err := Text("<h1>Finance</h1><script>var x = 1;</script><p>Q3   report</p>")
	require.NoError(t, err)
	assert.Equal(t, "Finance Q3 report", txt)
}
