package tui

import (
	"fmt"
	"strings"

	styles "github.com/charmbracelet/lipgloss"

	"github.com/visorlabs/visor/internal/query"
	"github.com/visorlabs/visor/internal/result"
)

var (
	tabStyle       = styles.NewStyle().Padding(0, 1).Foreground(styles.AdaptiveColor{Light: "#555", Dark: "#888"})
	activeTabStyle = styles.NewStyle().Padding(0, 1).Bold(true).Foreground(styles.AdaptiveColor{Light: "0", Dark: "15"})
	boxStyle       = styles.NewStyle().Border(styles.NormalBorder()).Padding(0, 1)
	titleStyle     = styles.NewStyle().Bold(true)
	dimStyle       = styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "#777", Dark: "#666"})
	okStyle        = styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "2", Dark: "10"})
	warnStyle      = styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "3", Dark: "11"})
	critStyle      = styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "1", Dark: "9"})
)

func (m *Model) View() string {
	var body string
	switch m.view {
	case viewResults:
		body = m.viewResults()
	case viewStreams:
		body = m.viewStreams()
	default:
		body = m.viewDashboard()
	}
	return styles.JoinVertical(styles.Left,
		m.headerBar(),
		body,
		m.help.View(keys),
	)
}

// headerBar renders the view tabs, the active filter summary and the
// push-channel connectivity badge.
func (m *Model) headerBar() string {
	tabs := make([]string, 0, 3)
	for i, name := range []string{"dashboard", "results", "streams"} {
		s := tabStyle
		if view(i) == m.view {
			s = activeTabStyle
		}
		tabs = append(tabs, s.Render(fmt.Sprintf("[%d] %s", i+1, name)))
	}

	conn := critStyle.Render("● offline")
	if m.sess.Connected() {
		conn = okStyle.Render("● live")
	}

	left := styles.JoinHorizontal(styles.Top, tabs...)
	right := m.filterSummary() + "  " + conn
	gap := m.width - styles.Width(left) - styles.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) filterSummary() string {
	parts := make([]string, 0, 3)
	if f := m.filter(); f.Level != "" {
		parts = append(parts, "level="+string(f.Level))
	} else {
		parts = append(parts, "level=all")
	}
	if f := m.filter(); f.StreamID != "" {
		parts = append(parts, "stream="+f.StreamID)
	}
	dir := "↓"
	if !m.desc {
		dir = "↑"
	}
	parts = append(parts, "sort="+string(sortCycle[m.sortIdx])+dir)
	return dimStyle.Render(strings.Join(parts, " "))
}

// viewDashboard renders the aggregate health view: backend stats, the 24h
// activity plot and per-model aggregates, all recomputed from the current
// snapshot on every render tick.
func (m *Model) viewDashboard() string {
	snapshot := m.sess.Store().Current()

	var blocks []string
	blocks = append(blocks, m.statsRow(snapshot))

	buckets := query.HourlyActivity(snapshot, m.now())
	m.plot.Fill([][]float64{activitySeries(buckets)})
	blocks = append(blocks,
		boxStyle.Render(titleStyle.Render("activity (24h)")+"\n"+m.plot.String()))

	blocks = append(blocks, m.modelTable(snapshot))
	return styles.JoinVertical(styles.Left, blocks...)
}

func (m *Model) statsRow(snapshot []result.AIResult) string {
	counts := query.LevelCounts(snapshot)
	local := fmt.Sprintf("%s\nresults %d\nwarn %s  crit %s",
		titleStyle.Render("buffer"),
		len(snapshot),
		warnStyle.Render(fmt.Sprint(counts[result.LevelWarning])),
		critStyle.Render(fmt.Sprint(counts[result.LevelCritical])),
	)

	remote := titleStyle.Render("backend") + "\n" + dimStyle.Render("no stats yet")
	if stats := m.sess.Stats(); stats != nil {
		remote = fmt.Sprintf("%s\nstreams %d/%d active\nrecent %d  alerts %d",
			titleStyle.Render("backend"),
			stats.ActiveStreams, stats.TotalStreams,
			stats.RecentResults, stats.Alerts,
		)
	}

	return styles.JoinHorizontal(styles.Top,
		boxStyle.Render(local),
		boxStyle.Render(remote),
	)
}

func (m *Model) modelTable(snapshot []result.AIResult) string {
	stats := query.ModelStats(snapshot)
	if len(stats) == 0 {
		return boxStyle.Render(titleStyle.Render("models") + "\n" + dimStyle.Render("no results"))
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("models"))
	for _, s := range stats {
		sb.WriteString(fmt.Sprintf("\n%-24s %5d  avg %s", s.ModelName, s.Count, fmtConfidence(s.AvgConfidence)))
	}
	return boxStyle.Render(sb.String())
}

func (m *Model) viewResults() string {
	return m.list.View()
}

// viewStreams renders one card per roster entry.
func (m *Model) viewStreams() string {
	streams := m.sess.Streams()
	if len(streams) == 0 {
		return boxStyle.Render(dimStyle.Render("no streams configured"))
	}

	cards := make([]string, 0, len(streams))
	for _, s := range streams {
		cards = append(cards, boxStyle.Render(streamCard(s)))
	}
	return styles.JoinVertical(styles.Left, cards...)
}

func streamCard(s result.StreamInfo) string {
	state := dimStyle.Render("stopped")
	if s.IsRunning {
		state = okStyle.Render("running")
	}
	return fmt.Sprintf("%s  %s\n%s %s\nmodels: %s\nframes: %d",
		titleStyle.Render(s.StreamID), state,
		s.Config.Source, s.Config.SourcePath,
		strings.Join(s.Config.AIModels, ", "),
		s.FrameCount,
	)
}

// activitySeries flattens hourly buckets into the plotted series,
// oldest-first to match the canvas's left-to-right axis.
func activitySeries(buckets []query.HourBucket) []float64 {
	series := make([]float64, len(buckets))
	for i, b := range buckets {
		series[i] = float64(b.Total)
	}
	return series
}

func fmtConfidence(c float64) string {
	return fmt.Sprintf("%.2f", c)
}

func levelBadge(l result.AlertLevel) string {
	switch l {
	case result.LevelCritical:
		return critStyle.Render("CRIT")
	case result.LevelWarning:
		return warnStyle.Render("WARN")
	default:
		return dimStyle.Render("INFO")
	}
}
