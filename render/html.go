package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/MrEthical07/goConsole/permission"
	"github.com/MrEthical07/goConsole/search"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// HTML renders shell regions to markup. It is safe for concurrent use so
// HTTP handlers can read regions while the event loop writes them.
type HTML struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	content   string
	panel     string
	panelOpen bool
	input     string
	focused   bool
	notices   []string
}

// New returns an empty view.
func New(logger *zap.Logger) *HTML {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTML{logger: logger}
}

// DisplayName turns a module name into its heading form, "hr" -> "Hr".
func DisplayName(module string) string {
	return cases.Title(language.Und, cases.NoLower).String(module)
}

func (v *HTML) ShowLoading(module string) {
	v.setContent(renderNodes(statusBlock("module-loading",
		fmt.Sprintf("Loading %s...", DisplayName(module)),
		"Fetching module data.",
	)))
}

// ShowFragment swaps the fragment in verbatim.
func (v *HTML) ShowFragment(_ string, fragment string) {
	v.setContent(fragment)
}

func (v *HTML) ShowError(module string, err error) {
	v.logger.Debug("rendering module error surface", zap.String("module", module), zap.Error(err))
	v.setContent(renderNodes(statusBlock("module-error",
		"Error",
		fmt.Sprintf("Could not load the %s module. Please try again later.", DisplayName(module)),
	)))
}

// ShowDenied surfaces the denial as a notice and leaves the content alone.
func (v *HTML) ShowDenied(err *permission.AccessDeniedError) {
	v.Notify(err.Error())
}

func (v *HTML) ShowResults(_ string, results []search.Scored) {
	nodes := make([]*html.Node, 0, len(results))
	for i, r := range results {
		nodes = append(nodes, resultRow(i, r))
	}
	v.setPanel(renderNodes(nodes...), true)
}

func (v *HTML) ShowEmpty(string) {
	v.setPanel(renderNodes(element(atom.Div, []html.Attribute{attr("class", "search-empty")},
		text(search.EmptyMessage),
	)), true)
}

func (v *HTML) ClosePanel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panelOpen = false
}

func (v *HTML) SetInput(value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = value
}

func (v *HTML) FocusInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focused = true
}

// Notify appends a user-visible message.
func (v *HTML) Notify(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, message)
}

// Content returns the content region markup.
func (v *HTML) Content() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.content
}

// Panel returns the result panel markup and whether it is visible.
func (v *HTML) Panel() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.panel, v.panelOpen
}

// Input returns the query field value and whether it holds focus.
func (v *HTML) Input() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.input, v.focused
}

// Notices returns every message surfaced so far.
func (v *HTML) Notices() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.notices...)
}

// Navigation renders the affordances as links carrying their lock and
// active state.
func Navigation(affs []permission.Affordance) string {
	nodes := make([]*html.Node, 0, len(affs))
	for _, a := range affs {
		class := []string{"sidebar-item"}
		if a.Placement == permission.PlacementHeader {
			class = []string{"header-link"}
		}
		if a.Active {
			class = append(class, "active")
		}
		if a.Locked {
			class = append(class, "locked")
		}

		attrs := []html.Attribute{
			attr("id", a.ID),
			attr("class", strings.Join(class, " ")),
			attr("data-module", a.Module),
		}
		if a.Requirement != "" {
			attrs = append(attrs, attr("data-permission", a.Requirement))
		}

		label := a.Label
		if label == "" {
			label = DisplayName(a.Module)
		}
		link := element(atom.A, attrs, text(label))
		if a.Locked {
			link.AppendChild(element(atom.Span, []html.Attribute{attr("class", "lock-icon")}))
		}
		nodes = append(nodes, link)
	}
	return renderNodes(element(atom.Nav, nil, nodes...))
}

// Text extracts the visible text of a fragment with whitespace collapsed.
func Text(fragment string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, n := range nodes {
		collectText(n, &sb)
	}
	return strings.Join(strings.Fields(sb.String()), " "), nil
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func (v *HTML) setContent(markup string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.content = markup
}

func (v *HTML) setPanel(markup string, open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panel = markup
	v.panelOpen = open
}

func statusBlock(class, heading, body string) *html.Node {
	return element(atom.Div, []html.Attribute{attr("class", class)},
		element(atom.Div, []html.Attribute{attr("class", "text-center")},
			element(atom.H2, []html.Attribute{attr("class", "section-title")}, text(heading)),
			element(atom.P, nil, text(body)),
		),
	)
}

func resultRow(i int, r search.Scored) *html.Node {
	title, subtitle := search.Describe(r.Record)
	meta := r.Record.RecordID()
	if subtitle != "" {
		meta += " • " + subtitle
	}

	attrs := []html.Attribute{
		attr("class", "search-result"),
		attr("data-index", strconv.Itoa(i)),
		attr("data-module", search.Target(r.Record)),
		attr("data-kind", string(r.Record.Kind())),
	}
	if r.Locked {
		attrs = append(attrs, attr("data-locked", "true"))
	}
	return element(atom.Div, attrs,
		element(atom.Div, []html.Attribute{attr("class", "search-result-title")}, text(title)),
		element(atom.Div, []html.Attribute{attr("class", "search-result-meta")}, text(meta)),
	)
}

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func renderNodes(nodes ...*html.Node) string {
	var buf bytes.Buffer
	for _, n := range nodes {
		// Rendering into a bytes.Buffer only fails on malformed trees,
		// which the builders above never produce.
		_ = html.Render(&buf, n)
	}
	return buf.String()
}
