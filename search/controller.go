package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goConsole/audit"
	"github.com/MrEthical07/goConsole/internal/clock"
	"go.uber.org/zap"
)

// ErrNoSuchResult is returned by Select for an index outside the panel.
var ErrNoSuchResult = errors.New("no such search result")

// EmptyMessage is the panel text for a searched query without matches.
const EmptyMessage = "No results found"

// PanelView renders the search input and result panel.
type PanelView interface {
	ShowResults(query string, results []Scored)
	ShowEmpty(query string)
	ClosePanel()
	SetInput(value string)
	FocusInput()
}

// Navigator is the module router as seen from search.
type Navigator interface {
	Navigate(ctx context.Context, module string) error
}

// Recorder is the audit recorder as seen from search.
type Recorder interface {
	Record(ctx context.Context, action audit.Action, module string, details map[string]string) bool
}

// Key is a key press delivered to the search surface.
type Key struct {
	Name string
	Ctrl bool
	Meta bool
}

// Hooks observe controller activity. Every hook is optional.
type Hooks struct {
	Searched func(query string, results int)
	Selected func(id string)
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Clock    clock.Clock
	Debounce time.Duration
	// Schedule routes debounce expiries onto the owner's goroutine.
	Schedule func(func()) bool
	Logger   *zap.Logger
	// Allowed reports whether the session may open a module. Results whose
	// target is not allowed are flagged Locked. Nil allows everything.
	Allowed func(module string) bool
	Hooks   Hooks
}

// Panel is a snapshot of the search surface.
type Panel struct {
	Input   string
	Query   string
	Open    bool
	Focused bool
	Results []Scored
}

// Controller drives the search input and result panel. It is not safe for
// concurrent use.
type Controller struct {
	index    *Index
	nav      Navigator
	recorder Recorder
	view     PanelView
	opts     ControllerOptions
	debounce *Debouncer

	panel    Panel
	searches int
}

// NewController wires index to the router, the recorder and view.
func NewController(index *Index, nav Navigator, recorder Recorder, view PanelView, opts ControllerOptions) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	c := &Controller{
		index:    index,
		nav:      nav,
		recorder: recorder,
		view:     view,
		opts:     opts,
	}
	c.debounce = NewDebouncer(opts.Clock, opts.Debounce, opts.Schedule, c.run)
	return c
}

// Input handles a change of the query field. A query shorter than
// MinQueryLength closes the panel at once; anything else is searched after
// the debounce interval.
func (c *Controller) Input(value string) {
	c.panel.Input = value
	if len([]rune(normalize(value))) < MinQueryLength {
		c.debounce.Cancel()
		c.panel.Query = ""
		c.panel.Results = nil
		c.panel.Open = false
		if c.view != nil {
			c.view.ClosePanel()
		}
		return
	}
	c.debounce.Trigger(value)
}

// Search ranks query immediately, flagging locked results, without touching
// the panel.
func (c *Controller) Search(query string) []Scored {
	results := c.index.Search(query)
	if c.opts.Allowed != nil {
		for i := range results {
			results[i].Locked = !c.opts.Allowed(Target(results[i].Record))
		}
	}
	return results
}

func (c *Controller) run(query string) {
	results := c.Search(query)
	c.searches++
	c.panel.Query = query
	c.panel.Results = results
	c.panel.Open = true

	c.opts.Logger.Debug("search", zap.String("query", query), zap.Int("results", len(results)))
	if c.opts.Hooks.Searched != nil {
		c.opts.Hooks.Searched(query, len(results))
	}
	if c.view == nil {
		return
	}
	if len(results) == 0 {
		c.view.ShowEmpty(query)
		return
	}
	c.view.ShowResults(query, results)
}

// Select navigates to the i-th result of the open panel, records
// SEARCH_RESULT_SELECTED, clears the input and closes the panel. The
// navigation error, such as a denial, is returned after the panel is reset.
func (c *Controller) Select(ctx context.Context, i int) error {
	if !c.panel.Open || i < 0 || i >= len(c.panel.Results) {
		return fmt.Errorf("%w: %d", ErrNoSuchResult, i)
	}
	picked := c.panel.Results[i]
	query := c.panel.Query
	target := Target(picked.Record)

	err := c.nav.Navigate(ctx, target)
	if c.recorder != nil {
		c.recorder.Record(ctx, audit.ActionSearchResultSelected, target, map[string]string{
			"record_id": picked.Record.RecordID(),
			"query":     query,
		})
	}
	if c.opts.Hooks.Selected != nil {
		c.opts.Hooks.Selected(picked.Record.RecordID())
	}

	c.debounce.Cancel()
	c.panel.Input = ""
	c.panel.Query = ""
	c.panel.Results = nil
	if c.view != nil {
		c.view.SetInput("")
	}
	c.close()
	return err
}

// OutsideInteraction closes the panel, keeping the typed query.
func (c *Controller) OutsideInteraction() {
	c.panel.Focused = false
	c.close()
}

// Key handles a key press and reports whether it was consumed. Escape closes
// the panel; Ctrl+K or Cmd+K focuses the input without touching results.
func (c *Controller) Key(k Key) bool {
	switch {
	case strings.EqualFold(k.Name, "Escape"):
		c.close()
		return true
	case strings.EqualFold(k.Name, "k") && (k.Ctrl || k.Meta):
		c.panel.Focused = true
		if c.view != nil {
			c.view.FocusInput()
		}
		return true
	default:
		return false
	}
}

// State returns a snapshot of the panel.
func (c *Controller) State() Panel {
	p := c.panel
	p.Results = append([]Scored(nil), c.panel.Results...)
	return p
}

// Searches returns how many searches have run through the debouncer.
func (c *Controller) Searches() int { return c.searches }

// Close cancels the pending debounce.
func (c *Controller) Close() { c.debounce.Cancel() }

// close hides the panel and drops a pending search so the panel stays
// closed until new input arrives.
func (c *Controller) close() {
	c.debounce.Cancel()
	wasOpen := c.panel.Open
	c.panel.Open = false
	if wasOpen && c.view != nil {
		c.view.ClosePanel()
	}
}
