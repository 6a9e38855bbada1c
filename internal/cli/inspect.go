package cli

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"

	"github.com/veldran/nexpr/pkg/expr"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// newInspectCmd creates the inspect command, an interactive node browser
// for a graph document.
func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Browse a graph's nodes interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadExpr(args[0])
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(NewNodeListModel(g)).Run()
			return err
		},
	}
}

// =============================================================================
// NodeListModel - Interactive node browser
// =============================================================================

// NodeListModel is the bubbletea model for browsing graph nodes. The list
// scrolls through the node IDs in sorted order; the pane below the table
// shows the selected node's entry in full.
type NodeListModel struct {
	Graph   expr.Graph
	IDs     []expr.NodeID
	Aliases map[expr.NodeID][]string
	Cursor  int
	Height  int
	Offset  int
}

// NewNodeListModel creates a node browser over the given graph.
func NewNodeListModel(g expr.Graph) NodeListModel {
	ids := g.IDs()
	slices.Sort(ids)
	return NodeListModel{
		Graph:   g,
		IDs:     ids,
		Aliases: aliasesByNode(g),
		Height:  15,
	}
}

func (m NodeListModel) Init() tea.Cmd {
	return nil
}

func (m NodeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.IDs)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "g":
			m.Cursor = 0
			m.Offset = 0
		case "G":
			m.Cursor = len(m.IDs) - 1
			if m.Cursor >= m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 10
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m NodeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Inspect Graph"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.IDs) {
		end = len(m.IDs)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		id := m.IDs[i]
		e, _ := m.Graph.Entry(id)

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		root := ""
		if id == m.Graph.RootID() {
			root = "●"
		}

		aliasStr := strings.Join(m.Aliases[id], ", ")
		rows = append(rows, []string{cursor, string(id), e.Kind, root, aliasStr})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Kind", "Root", "Aliases").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col == 4 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(m.detailView())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.IDs))))

	return b.String()
}

// detailView renders the selected node's entry: kind, declared output
// type, and every child with its position.
func (m NodeListModel) detailView() string {
	if len(m.IDs) == 0 {
		return listDimStyle.Render("  (empty graph)")
	}
	id := m.IDs[m.Cursor]
	e, _ := m.Graph.Entry(id)

	var b strings.Builder
	b.WriteString("  " + StyleHighlight.Render(string(id)) + " " + StyleDim.Render(e.Kind) + "\n")
	if e.Out != cty.NilType && e.Out != cty.DynamicPseudoType {
		b.WriteString("  " + StyleDim.Render("out: "+e.Out.FriendlyName()) + "\n")
	}
	for i, c := range e.Children {
		var desc string
		if c.IsRef() {
			desc = iconArrow + " " + string(c.Target())
		} else {
			desc = valueString(c.Literal())
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", StyleDim.Render(fmt.Sprintf("arg %d:", i)), desc))
	}
	return b.String()
}
