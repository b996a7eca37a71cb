package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/cissync/internal/bundle"
)

var (
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	detailStyle    = lipgloss.NewStyle().Padding(0, 1)
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Model is the BubbleTea model for the bundle browser.
type Model struct {
	source      string
	allPolicies []bundle.Policy // full set, sync order
	policies    []bundle.Policy // current view (may be filtered)
	table       table.Model
	width       int
	height      int
	quitting    bool
	searching   bool
	searchInput textinput.Model
}

// NewModel creates a browser model from a loaded bundle.
func NewModel(b *bundle.Bundle, source string) *Model {
	policies := b.All()

	cols := []table.Column{
		{Title: "CATEGORY", Width: 12},
		{Title: "SEVERITY", Width: 18},
		{Title: "NAME", Width: 52},
	}

	rows := make([]table.Row, len(policies))
	for i := range policies {
		rows[i] = policyToRow(&policies[i])
	}

	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("57"))

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(12),
		table.WithStyles(s),
	)

	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 64

	return &Model{
		source:      source,
		table:       t,
		allPolicies: policies,
		policies:    policies,
		width:       80,
		height:      24,
		searchInput: ti,
	}
}

func policyToRow(p *bundle.Policy) table.Row {
	return table.Row{string(p.Category), p.Severity, p.Name}
}

// Init satisfies tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles key events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.updateSearch(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc":
			if m.searchInput.Value() != "" {
				m.searchInput.SetValue("")
				m.applyFilter()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case "/":
			m.searching = true
			return m, m.searchInput.Focus()
		case "g":
			m.table.GotoTop()
			return m, nil
		case "G":
			m.table.GotoBottom()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(m.tableHeight())
		m.table.SetWidth(m.width)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.searching = false
			m.searchInput.Blur()
			return m, nil
		case "esc":
			m.searching = false
			m.searchInput.SetValue("")
			m.searchInput.Blur()
			m.applyFilter()
			return m, nil
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(m.tableHeight())
		m.table.SetWidth(m.width)
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

// View renders the full TUI.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteByte('\n')
	b.WriteString(m.table.View())
	b.WriteByte('\n')
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	b.WriteByte('\n')
	b.WriteString(m.detailView())
	b.WriteByte('\n')
	b.WriteString(m.footerView())
	return b.String()
}

func (m *Model) headerView() string {
	var k8s, docker, runtime int
	for i := range m.policies {
		switch m.policies[i].Category {
		case bundle.CategoryKubernetes:
			k8s++
		case bundle.CategoryDocker:
			docker++
		case bundle.CategoryRuntime:
			runtime++
		}
	}

	title := headerStyle.Render(fmt.Sprintf("cissync · %s", m.source))

	totalStr := fmt.Sprintf("Total: %d", len(m.policies))
	if len(m.policies) != len(m.allPolicies) {
		totalStr = fmt.Sprintf("Showing: %d/%d", len(m.policies), len(m.allPolicies))
	}

	counts := headerStyle.Render(fmt.Sprintf(
		"Kubernetes: %d  Docker: %d  Runtime: %d  %s",
		k8s, docker, runtime, totalStr,
	))

	return title + "\n" + counts
}

func (m *Model) detailView() string {
	if len(m.policies) == 0 {
		if m.searchInput.Value() != "" {
			return detailStyle.Render(dimStyle.Render("No matches."))
		}
		return detailStyle.Render("Empty bundle.")
	}

	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.policies) {
		return ""
	}

	p := &m.policies[idx]
	if p.Description == "" {
		return detailStyle.Render(dimStyle.Render("(no description)"))
	}
	return detailStyle.Render(p.Description)
}

func (m *Model) footerView() string {
	if m.searching {
		return " /" + m.searchInput.View()
	}
	help := " q quit · ↑↓/jk navigate · g/G top/bottom · / search"
	if m.searchInput.Value() != "" {
		help += " · esc clear"
	}
	return dimStyle.Render(help)
}

func (m *Model) tableHeight() int {
	// Reserve space for header, table chrome, separator, detail, footer.
	reserved := 10
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) applyFilter() {
	query := strings.ToLower(m.searchInput.Value())
	if query == "" {
		m.policies = m.allPolicies
	} else {
		var filtered []bundle.Policy
		for i := range m.allPolicies {
			p := &m.allPolicies[i]
			hay := strings.ToLower(p.Name + " " + string(p.Category) + " " + p.Severity + " " + p.Description)
			if strings.Contains(hay, query) {
				filtered = append(filtered, m.allPolicies[i])
			}
		}
		m.policies = filtered
	}
	m.rebuildRows()
}

func (m *Model) rebuildRows() {
	rows := make([]table.Row, len(m.policies))
	for i := range m.policies {
		rows[i] = policyToRow(&m.policies[i])
	}
	m.table.SetRows(rows)
}
