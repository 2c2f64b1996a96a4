// SPDX-License-Identifier: MIT
// Package tui is the terminal preset browser.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voicefx/internal/chain"
	"voicefx/internal/preset"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06C75"))
)

// ReferenceFrequencies are the points shown in the detail response table.
var ReferenceFrequencies = []float64{100, 250, 500, 1000, 2000, 4000, 8000}

// ScreenType defines which screen is currently active.
type ScreenType int

const (
	ListScreen ScreenType = iota
	DetailScreen
)

// Loader lists and loads presets, typically a *preset.Store.
type Loader interface {
	List() ([]string, error)
	Load(name string) (preset.Preset, error)
}

type keyMap struct {
	Up, Down, Open, Choose, Back, Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Choose, k.Back, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Choose: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply")),
	Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type presetsMsg struct{ names []string }

type presetMsg struct {
	name   string
	preset preset.Preset
}

type errMsg struct{ err error }

// PresetBrowserModel is the Bubble Tea model listing stored presets.
type PresetBrowserModel struct {
	loader     Loader
	sampleRate float64

	names         []string
	selectedIndex int
	detail        *preset.Preset
	chosen        string

	viewport     viewport.Model
	help         help.Model
	ready        bool
	err          error
	activeScreen ScreenType
}

// NewPresetBrowserModel creates a browser over loader. Responses are
// computed at sampleRate.
func NewPresetBrowserModel(loader Loader, sampleRate float64) PresetBrowserModel {
	return PresetBrowserModel{
		loader:       loader,
		sampleRate:   sampleRate,
		help:         help.New(),
		activeScreen: ListScreen,
	}
}

// Chosen returns the name applied with the choose key, or "".
func (m PresetBrowserModel) Chosen() string { return m.chosen }

func (m PresetBrowserModel) Init() tea.Cmd {
	return m.fetchPresets
}

func (m PresetBrowserModel) fetchPresets() tea.Msg {
	names, err := m.loader.List()
	if err != nil {
		return errMsg{err}
	}
	return presetsMsg{names}
}

func (m PresetBrowserModel) fetchPreset(name string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.loader.Load(name)
		if err != nil {
			return errMsg{err}
		}
		return presetMsg{name: name, preset: p}
	}
}

func (m PresetBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.help.Width = msg.Width
		m.refresh()

	case presetsMsg:
		m.names = msg.names
		m.selectedIndex = min(m.selectedIndex, max(0, len(m.names)-1))
		m.refresh()

	case presetMsg:
		p := msg.preset
		m.detail = &p
		m.err = nil
		m.activeScreen = DetailScreen
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, keys.Up):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.refresh()
				}
			case key.Matches(msg, keys.Down):
				if m.selectedIndex < len(m.names)-1 {
					m.selectedIndex++
					m.refresh()
				}
			case key.Matches(msg, keys.Open):
				if len(m.names) > 0 {
					cmds = append(cmds, m.fetchPreset(m.names[m.selectedIndex]))
				}
			case key.Matches(msg, keys.Choose):
				if len(m.names) > 0 {
					m.chosen = m.names[m.selectedIndex]
					return m, tea.Quit
				}
			}
		case DetailScreen:
			switch {
			case key.Matches(msg, keys.Back):
				m.activeScreen = ListScreen
				m.detail = nil
				m.refresh()
			case key.Matches(msg, keys.Choose):
				m.chosen = m.names[m.selectedIndex]
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *PresetBrowserModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == DetailScreen && m.detail != nil {
		m.viewport.SetContent(RenderPreset(*m.detail, m.sampleRate))
		return
	}
	m.viewport.SetContent(m.renderList())
}

func (m PresetBrowserModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render("Presets")
	if m.activeScreen == DetailScreen && m.detail != nil {
		title = titleStyle.Render("Preset: " + m.detail.Name)
	}
	body := m.viewport.View()
	if m.err != nil {
		body = errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + body
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, infoStyle.Render(m.help.View(keys)))
}

func (m PresetBrowserModel) renderList() string {
	if len(m.names) == 0 {
		return "No presets found."
	}
	var sb strings.Builder
	for i, name := range m.names {
		line := "  " + name
		if i == m.selectedIndex {
			line = highlightStyle.Render("▶ " + name)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderPreset formats the bands, dynamics and modulation of p together
// with the designed filter response at ReferenceFrequencies.
func RenderPreset(p preset.Preset, sampleRate float64) string {
	var sb strings.Builder
	eq := p.EQ

	fmt.Fprintf(&sb, "Version %d\n\n", p.Version)
	sb.WriteString("EQ\n")
	fmt.Fprintf(&sb, "  low shelf   %7.0f Hz  %+5.1f dB\n", eq.LowShelf.FcHz, eq.LowShelf.GainDB)
	for i, pk := range eq.Peaks {
		fmt.Fprintf(&sb, "  peak %-2d     %7.0f Hz  %+5.1f dB  Q %.2f\n", i+1, pk.FcHz, pk.GainDB, pk.Q)
	}
	fmt.Fprintf(&sb, "  high shelf  %7.0f Hz  %+5.1f dB\n\n", eq.HighShelf.FcHz, eq.HighShelf.GainDB)

	d := p.Dynamics
	sb.WriteString("Dynamics\n")
	fmt.Fprintf(&sb, "  pregain     %+5.1f dB\n", d.PregainDB)
	if p.CompressorEnabled() {
		c := d.Compressor
		fmt.Fprintf(&sb, "  compressor  %.1f:1 above %.1f dBFS (%.0f/%.0f ms)\n",
			c.Ratio, c.ThresholdDBFS, c.AttackMs, c.ReleaseMs)
	} else {
		sb.WriteString("  compressor  off\n")
	}
	fmt.Fprintf(&sb, "  limiter     %.1f dBFS, %.1f ms look-ahead, %.0f ms release\n\n",
		d.Limiter.CeilingDBFS, d.Limiter.LookaheadMs, d.Limiter.ReleaseMs)

	mod := p.Modulation
	sb.WriteString("Modulation\n")
	if mod.Enabled {
		fmt.Fprintf(&sb, "  %.2f Hz, ±%.1f dB\n\n", mod.RateHz, mod.DepthDB)
	} else {
		sb.WriteString("  off\n\n")
	}

	c, err := chain.New(chain.WithPreset(p), chain.WithSampleRate(sampleRate))
	if err != nil {
		fmt.Fprintf(&sb, "Response unavailable: %v\n", err)
		return sb.String()
	}
	fmt.Fprintf(&sb, "Filter response at %.0f Hz\n", sampleRate)
	for _, f := range ReferenceFrequencies {
		if f >= sampleRate/2 {
			continue
		}
		fmt.Fprintf(&sb, "  %6.0f Hz  %+6.2f dB\n", f, c.ResponseDB(f))
	}
	return sb.String()
}

// RunPresetBrowser shows the browser and returns the chosen preset name,
// or "" when the user quit without choosing.
func RunPresetBrowser(loader Loader, sampleRate float64) (string, error) {
	p := tea.NewProgram(
		NewPresetBrowserModel(loader, sampleRate),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	return final.(PresetBrowserModel).Chosen(), nil
}
