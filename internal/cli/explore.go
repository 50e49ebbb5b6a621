package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"ldlookup/internal/reader"
)

// newExploreCommand opens a dataset and launches a small interactive TUI
// where an operator can type an index variant id and see its LD
// surrogates, summary statistics, and similarity-stratum neighbors
// without re-invoking the CLI for every query.
func newExploreCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "explore <dataset-dir>",
		Short: "Interactively browse a dataset's LD, stats, and similarity queries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rd, err := reader.Open(args[0], logger.With("component", "cli.explore"))
			if err != nil {
				return err
			}
			defer rd.Close()

			p := tea.NewProgram(newExploreModel(rd))
			_, err = p.Run()
			return err
		},
	}
}

type exploreStyles struct {
	header lipgloss.Style
	label  lipgloss.Style
}

func defaultExploreStyles() exploreStyles {
	return exploreStyles{
		header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		label:  lipgloss.NewStyle().Faint(true),
	}
}

type exploreModel struct {
	rd       *reader.Reader
	input    textinput.Model
	view     viewport.Model
	styles   exploreStyles
	quitting bool
}

func newExploreModel(rd *reader.Reader) exploreModel {
	ti := textinput.New()
	ti.Placeholder = "variant id, e.g. rs123"
	ti.Focus()
	ti.CharLimit = 128

	vp := viewport.New(80, 18)
	vp.SetContent("Type a variant id and press enter. Ctrl+C to quit.")

	return exploreModel{rd: rd, input: ti, view: vp, styles: defaultExploreStyles()}
}

func (m exploreModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.view.Width = msg.Width
		m.view.Height = msg.Height - 5
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.view.SetContent(m.renderQuery(m.input.Value()))
			m.input.SetValue("")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m exploreModel) renderQuery(id string) string {
	if strings.TrimSpace(id) == "" {
		return "enter a variant id"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", m.styles.header.Render(id))

	maf, n, err := m.rd.VariantStatistics(id)
	if err != nil {
		fmt.Fprintf(&sb, "%s %v\n", m.styles.label.Render("stats:"), err)
	} else {
		fmt.Fprintf(&sb, "%s maf=%v n_surrogates=%v\n\n", m.styles.label.Render("stats:"), maf, n)
	}

	surrogates, err := m.rd.VariantsInLDWith(id)
	if err != nil {
		fmt.Fprintf(&sb, "%s %v\n", m.styles.label.Render("in LD with:"), err)
	} else {
		fmt.Fprintf(&sb, "%s %s\n\n", m.styles.label.Render("in LD with:"), strings.Join(surrogates, ", "))
	}

	similar, err := m.rd.VariantsSimilarTo(id)
	if err != nil {
		fmt.Fprintf(&sb, "%s %v\n", m.styles.label.Render("similar:"), err)
	} else {
		fmt.Fprintf(&sb, "%s %s\n", m.styles.label.Render("similar:"), strings.Join(similar, ", "))
	}

	return sb.String()
}

func (m exploreModel) View() string {
	if m.quitting {
		return ""
	}
	return fmt.Sprintf("%s\n\n%s\n", m.view.View(), m.input.View())
}
