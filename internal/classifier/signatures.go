package classifier

import "regexp"

type Category string

const (
	CategoryBrowser       Category = "browser"
	CategoryDevelopment   Category = "development"
	CategoryCommunication Category = "communication"
	CategoryProductivity  Category = "productivity"
	CategoryDesign        Category = "design"
	CategoryEntertainment Category = "entertainment"
)

// App is one detected application.
type App struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

type signature struct {
	name     string
	category Category
	patterns []*regexp.Regexp
}

func sig(name string, category Category, patterns ...string) signature {
	s := signature{name: name, category: category}
	for _, p := range patterns {
		s.patterns = append(s.patterns, regexp.MustCompile(`(?i)`+p))
	}
	return s
}

// Order matters only for output stability; each entry is tested
// independently.
var signatures = []signature{
	sig("Google Chrome", CategoryBrowser, `google chrome`, `chrome://`, `\bchromium\b`),
	sig("Mozilla Firefox", CategoryBrowser, `\bfirefox\b`, `mozilla`),
	sig("Safari", CategoryBrowser, `\bsafari\b`),
	sig("Microsoft Edge", CategoryBrowser, `microsoft edge`, `edge://`),
	sig("Visual Studio Code", CategoryDevelopment, `visual studio code`, `\bvs ?code\b`),
	sig("IntelliJ IDEA", CategoryDevelopment, `intellij`, `jetbrains`),
	sig("Terminal", CategoryDevelopment, `\bterminal\b`, `\bbash\b`, `\bzsh\b`, `powershell`, `\$ (sudo|git|go|npm|cd|ls) `),
	sig("GitHub", CategoryDevelopment, `github\.com`, `\bpull request\b`),
	sig("Slack", CategoryCommunication, `\bslack\b`),
	sig("Microsoft Teams", CategoryCommunication, `microsoft teams`, `\bteams meeting\b`),
	sig("Zoom", CategoryCommunication, `\bzoom meeting\b`, `zoom\.us`),
	sig("Gmail", CategoryCommunication, `\bgmail\b`, `\binbox\b.*\bcompose\b|\bcompose\b.*\binbox\b`),
	sig("Outlook", CategoryCommunication, `\boutlook\b`),
	sig("Discord", CategoryCommunication, `\bdiscord\b`),
	sig("Microsoft Word", CategoryProductivity, `microsoft word`, `\.docx\b`),
	sig("Microsoft Excel", CategoryProductivity, `microsoft excel`, `\.xlsx\b`),
	sig("Google Docs", CategoryProductivity, `google docs`, `docs\.google\.com`),
	sig("Google Sheets", CategoryProductivity, `google sheets`),
	sig("Notion", CategoryProductivity, `\bnotion\b`),
	sig("Jira", CategoryProductivity, `\bjira\b`, `atlassian`),
	sig("Figma", CategoryDesign, `\bfigma\b`),
	sig("Adobe Photoshop", CategoryDesign, `photoshop`),
	sig("YouTube", CategoryEntertainment, `youtube`),
	sig("Netflix", CategoryEntertainment, `netflix`),
	sig("Spotify", CategoryEntertainment, `spotify`),
}

// Text that indicates nobody is working at the screen.
var idleSignals = []*regexp.Regexp{
	regexp.MustCompile(`(?i)screen ?saver`),
	regexp.MustCompile(`(?i)lock ?screen|screen (is )?locked`),
	regexp.MustCompile(`(?i)\bsign[ -]?in\b|\blog ?in to\b`),
	regexp.MustCompile(`(?i)enter (your )?password|password:`),
	regexp.MustCompile(`(?i)^\s*desktop\s*$`),
}

// Apps returns the name and category of every known application.
func Apps() []App {
	apps := make([]App, 0, len(signatures))
	for _, s := range signatures {
		apps = append(apps, App{Name: s.name, Category: s.category})
	}
	return apps
}
