package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

// Color palette
var (
	Primary   = lipgloss.Color("#7D56F4")
	Secondary = lipgloss.Color("#00D4AA")

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
	Bright  = lipgloss.Color("#FAFAFA")

	// Category colors, shared with the PDF and HTML reports
	XSSColor     = lipgloss.Color("#DC2626")
	SQLiColor    = lipgloss.Color("#EA580C")
	SpecialColor = lipgloss.Color("#CA8A04")
)

// Pre-configured styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Bright).
			Background(Primary).
			Padding(0, 1)

	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(Bright).
			Bold(true).
			MarginTop(1)

	ConfigLabelStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Width(16)

	ConfigValueStyle = lipgloss.NewStyle().
				Foreground(Bright)

	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(Primary)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#3B3B4F"))

	StatLabelStyle = lipgloss.NewStyle().
			Foreground(Muted)

	StatValueStyle = lipgloss.NewStyle().
			Foreground(Bright).
			Bold(true)

	VulnerableStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SafeStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	PayloadStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)
)

// CategoryStyle returns the badge style for a payload category.
func CategoryStyle(c inputvalidation.Category) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#FFFFFF"))
	switch c {
	case inputvalidation.CategoryXSS:
		return base.Background(XSSColor)
	case inputvalidation.CategorySQLi:
		return base.Background(SQLiColor)
	case inputvalidation.CategorySpecialChars:
		return base.Foreground(lipgloss.Color("#000000")).Background(SpecialColor)
	default:
		return base.Foreground(Muted)
	}
}
