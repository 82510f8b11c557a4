// Package tui is the interactive operator console: a terminal dashboard,
// result browser and stream overview over one session. All views are pure
// readers of point-in-time store snapshots; user selections and render ticks
// drive the query engine only, never the store's merge logic.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tui "github.com/charmbracelet/bubbletea"
	plot "github.com/chriskim06/drawille-go"

	"github.com/visorlabs/visor/internal/query"
	"github.com/visorlabs/visor/internal/result"
	"github.com/visorlabs/visor/internal/session"
)

type view int

const (
	viewDashboard view = iota
	viewResults
	viewStreams
)

// levelCycle is the filter rotation bound to the "f" key: all levels first.
var levelCycle = []result.AlertLevel{"", result.LevelInfo, result.LevelWarning, result.LevelCritical}

// sortCycle is the sort rotation bound to the "s" key.
var sortCycle = []query.SortKey{query.SortTimestamp, query.SortConfidence, query.SortAlertLevel}

// Model is the bubbletea model for the console.
type Model struct {
	sess *session.Session

	width, height int
	view          view

	levelIdx  int
	sortIdx   int
	desc      bool
	streamSel int // 0 = all streams, otherwise 1-based roster index

	list list.Model
	help help.Model
	plot plot.Canvas

	now func() time.Time
}

// New creates a console over a started session.
func New(sess *session.Session) *Model {
	const (
		defaultWidth  = 80
		defaultHeight = 24
	)

	d := list.NewDefaultDelegate()
	d.ShowDescription = true
	l := list.New(nil, d, defaultWidth, defaultHeight-6)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	p := plot.NewCanvas(defaultWidth-2, 6)
	p.ShowAxis = false
	p.NumDataPoints = 24 // one point per hourly bucket

	return &Model{
		sess: sess,
		view: viewDashboard,
		desc: true,
		list: l,
		help: help.New(),
		plot: p,
		now:  time.Now,
	}
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(sess *session.Session) error {
	m := New(sess)
	_, err := tui.NewProgram(m, tui.WithAltScreen()).Run()
	return err
}

type refreshMsg time.Time

// doRefreshTick re-renders once a second; each tick re-reads the store.
func doRefreshTick() tui.Cmd {
	return tui.Every(time.Second, func(t time.Time) tui.Msg {
		return refreshMsg(t)
	})
}

func (m *Model) Init() tui.Cmd {
	return doRefreshTick()
}

func (m *Model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.reloadList()
		return m, doRefreshTick()

	case tui.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(m.width, max(1, m.height-6))
		m.resizePlot()
		return m, nil

	case tui.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tui.Quit
		case key.Matches(msg, keys.Dashboard):
			m.view = viewDashboard
		case key.Matches(msg, keys.Results):
			m.view = viewResults
			m.reloadList()
		case key.Matches(msg, keys.Streams):
			m.view = viewStreams
		case key.Matches(msg, keys.Level):
			m.levelIdx = (m.levelIdx + 1) % len(levelCycle)
			m.reloadList()
		case key.Matches(msg, keys.Stream):
			m.streamSel = (m.streamSel + 1) % (len(m.sess.Streams()) + 1)
			m.reloadList()
		case key.Matches(msg, keys.Sort):
			m.sortIdx = (m.sortIdx + 1) % len(sortCycle)
			m.reloadList()
		case key.Matches(msg, keys.Order):
			m.desc = !m.desc
			m.reloadList()
		}
	}

	if m.view == viewResults {
		var cmd tui.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

// filter assembles the current selection state into query criteria.
func (m *Model) filter() query.Filter {
	f := query.Filter{Level: levelCycle[m.levelIdx]}
	if streams := m.sess.Streams(); m.streamSel > 0 && m.streamSel <= len(streams) {
		f.StreamID = streams[m.streamSel-1].StreamID
	}
	return f
}

func (m *Model) sortDir() query.SortDir {
	if m.desc {
		return query.Descending
	}
	return query.Ascending
}

// reloadList recomputes the filtered view from a fresh store snapshot.
func (m *Model) reloadList() {
	filtered := query.Apply(m.sess.Store().Current(), m.filter(), sortCycle[m.sortIdx], m.sortDir())

	items := make([]list.Item, len(filtered))
	for i, r := range filtered {
		items[i] = resultItem{r}
	}
	m.list.SetItems(items)
}

func (m *Model) resizePlot() {
	w := max(10, m.width-2)
	h := 6
	p := plot.NewCanvas(w, h)
	p.ShowAxis = m.plot.ShowAxis
	p.NumDataPoints = m.plot.NumDataPoints
	m.plot = p
}

// resultItem adapts an AIResult to the results list.
type resultItem struct {
	result.AIResult
}

func (i resultItem) Title() string {
	return levelBadge(i.AlertLevel) + " " + i.StreamID + " · " + i.ModelName
}

func (i resultItem) Description() string {
	return i.Timestamp.Format("15:04:05") + "  confidence " + fmtConfidence(i.Confidence)
}

func (i resultItem) FilterValue() string { return i.StreamID + " " + i.ModelName }
