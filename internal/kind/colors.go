package kind

import "github.com/charmbracelet/lipgloss"

// portColors are the editor hints for wire and pin rendering.
var portColors = map[Kind]lipgloss.Color{
	Flow:         lipgloss.Color("#006400"),
	Number:       lipgloss.Color("#A0A0A0"),
	String:       lipgloss.Color("#B8860B"),
	Boolean:      lipgloss.Color("#8B0000"),
	List:         lipgloss.Color("#8B008B"),
	Dict:         lipgloss.Color("#00008B"),
	Image:        lipgloss.Color("#00FFFF"),
	Color:        lipgloss.Color("#FF00FF"),
	Bytes:        lipgloss.Color("#4B0082"),
	Password:     lipgloss.Color("#708090"),
	Any:          lipgloss.Color("#696969"),
	ProviderFlow: lipgloss.Color("#D11575"),
	Trigger:      lipgloss.Color("#FF4500"),
	Compare:      lipgloss.Color("#FFD700"),
	DialogMode:   lipgloss.Color("#7B68EE"),
	WriteMode:    lipgloss.Color("#32CD32"),
}

// PortColor returns the UI color hint for a kind. Unlisted kinds share Any's color.
func PortColor(k Kind) lipgloss.Color {
	if c, ok := portColors[k]; ok {
		return c
	}
	return portColors[Any]
}
