package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the colour palette for the screen.
type Theme struct {
	Primary  lipgloss.Color
	Muted    lipgloss.Color
	Success  lipgloss.Color
	Error    lipgloss.Color
	Border   lipgloss.Color
	Disabled lipgloss.Color
}

func DefaultTheme() Theme {
	return Theme{
		Primary:  lipgloss.Color("#0F9D58"), // Sheets green
		Muted:    lipgloss.Color("#6C7086"),
		Success:  lipgloss.Color("#A6E3A1"),
		Error:    lipgloss.Color("#F38BA8"),
		Border:   lipgloss.Color("#45475A"),
		Disabled: lipgloss.Color("#3A3A4A"),
	}
}

type Styles struct {
	Title          lipgloss.Style
	Muted          lipgloss.Style
	Success        lipgloss.Style
	Button         lipgloss.Style
	ButtonFocused  lipgloss.Style
	ButtonDisabled lipgloss.Style
	TextView       lipgloss.Style
	Alert          lipgloss.Style
	AlertTitle     lipgloss.Style
	Help           lipgloss.Style
}

func NewStyles(theme Theme) Styles {
	button := lipgloss.NewStyle().Padding(0, 2).MarginRight(1)
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Button: button.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),
		ButtonFocused: button.
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Primary).
			Foreground(theme.Primary),
		ButtonDisabled: button.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Disabled).
			Foreground(theme.Disabled),
		TextView: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		Alert: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(theme.Error).
			Padding(1, 2),
		AlertTitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Error),
		Help:       lipgloss.NewStyle().Foreground(theme.Muted),
	}
}
