package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/dopflow/pkg/flow"
)

// Explorer styles
var (
	exploreHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	exploreLeaderStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	exploreBarStyle    = lipgloss.NewStyle().Foreground(colorCyan)
	exploreElimStyle   = lipgloss.NewStyle().Foreground(colorRed)
	exploreDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// barWidth is the width of a 100% share bar, in cells.
const barWidth = 30

// =============================================================================
// exploreModel - Round-by-round count viewer
// =============================================================================

// exploreModel steps through the rounds of a flow graph.
type exploreModel struct {
	title string
	graph *flow.Graph
	round int
}

func newExploreModel(title string, g *flow.Graph) exploreModel {
	return exploreModel{title: title, graph: g}
}

func (m exploreModel) Init() tea.Cmd {
	return nil
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	last := m.graph.RoundCount() - 1
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		if m.round > 0 {
			m.round--
		}
	case "right", "l", " ":
		if m.round < last {
			m.round++
		}
	case "home", "g":
		m.round = 0
	case "end", "G":
		m.round = last
	}
	return m, nil
}

func (m exploreModel) View() string {
	var b strings.Builder

	title := m.title
	if title == "" {
		title = "Count"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("  ")
	b.WriteString(exploreDimStyle.Render(fmt.Sprintf("round %d of %d", m.round+1, m.graph.RoundCount())))
	b.WriteString("\n")
	b.WriteString(exploreDimStyle.Render("←/→ step  g/G first/last  q quit"))
	b.WriteString("\n\n")

	if line := m.eliminationLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n\n")
	}

	b.WriteString(m.table())
	b.WriteString("\n")

	if m.round == m.graph.RoundCount()-1 {
		if w := m.graph.Winner(); w != nil {
			b.WriteString("\n")
			b.WriteString(StyleSuccess.Render(fmt.Sprintf("%s %s wins with %s votes (%.1f%%)",
				iconSuccess, w.Label(), formatVotes(w.Votes), w.VotePercentage)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// table renders the standings of the current round.
func (m exploreModel) table() string {
	nodes := m.graph.Round(m.round)
	rows := make([][]string, 0, len(nodes))
	for i, n := range nodes {
		delta := ""
		if m.round > 0 {
			delta = "+" + formatVotes(n.Received())
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			n.Label(),
			formatVotes(n.Votes),
			fmt.Sprintf("%.1f%%", n.VotePercentage),
			delta,
			exploreBarStyle.Render(bar(n.VotePercentage)),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Candidate", "Votes", "Share", "Δ", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return exploreHeaderStyle
			case row == 0 && col != 5:
				return exploreLeaderStyle
			case col == 4:
				return exploreDimStyle
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

// eliminationLine describes the candidate eliminated entering the current
// round and how many of their votes moved.
func (m exploreModel) eliminationLine() string {
	if m.round == 0 || m.round >= len(m.graph.Eliminated) {
		return ""
	}
	elim := m.graph.Eliminated[m.round]
	if elim < 0 {
		return ""
	}
	name := fmt.Sprintf("Candidate %d", elim+1)
	for _, n := range m.graph.Round(m.round - 1) {
		if n.CandidateIndex == elim {
			name = n.Label()
			break
		}
	}
	var moved float64
	for _, n := range m.graph.Round(m.round) {
		moved += n.Received()
	}
	return exploreElimStyle.Render(fmt.Sprintf("%s %s eliminated, %s votes transferred",
		iconError, name, formatVotes(moved)))
}

// bar draws a share as a run of block characters.
func bar(pct float64) string {
	n := int(pct / 100 * barWidth)
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return strings.Repeat("█", n)
}
