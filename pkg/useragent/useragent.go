package useragent

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Device classes.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// Info is the coarse classification recorded in session activity logs.
type Info struct {
	Browser string
	Version string
	OS      string
	Device  string
}

// IsBot reports whether the agent identified itself as a crawler.
func (i Info) IsBot() bool { return i.Device == DeviceBot }

// String renders a short "Browser Version on OS (device)" label.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Browser)
	if i.Version != "" {
		b.WriteString(" " + i.Version)
	}
	b.WriteString(" on " + i.OS)
	b.WriteString(" (" + i.Device + ")")
	return b.String()
}

type browserRule struct {
	name    string
	token   string
	version *regexp.Regexp
}

// Order matters: Edge and Opera also carry "Chrome/", Chrome carries "Safari/".
var browserRules = []browserRule{
	{"Edge", "Edg/", regexp.MustCompile(`Edg/(\d+)`)},
	{"Opera", "OPR/", regexp.MustCompile(`OPR/(\d+)`)},
	{"Firefox", "Firefox/", regexp.MustCompile(`Firefox/(\d+)`)},
	{"Chrome", "Chrome/", regexp.MustCompile(`Chrome/(\d+)`)},
	{"Chrome", "CriOS/", regexp.MustCompile(`CriOS/(\d+)`)},
	{"Safari", "Safari/", regexp.MustCompile(`Version/(\d+)`)},
}

var osRules = []struct {
	name  string
	token string
}{
	{"iOS", "iPhone"},
	{"iOS", "iPad"},
	{"Android", "Android"},
	{"Windows", "Windows"},
	{"macOS", "Macintosh"},
	{"ChromeOS", "CrOS"},
	{"Linux", "Linux"},
}

var botPattern = regexp.MustCompile(`(?i)([a-z0-9\-_]*(?:bot|spider|crawler))`)

// Parse classifies a User-Agent header. Unknown parts are reported as "Unknown".
func Parse(ua string) Info {
	info := Info{Browser: "Unknown", OS: "Unknown", Device: DeviceUnknown}
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return info
	}

	if m := botPattern.FindStringSubmatch(ua); m != nil {
		info.Browser = cases.Title(language.English).String(strings.ToLower(m[1]))
		info.Device = DeviceBot
		return info
	}

	for _, r := range browserRules {
		if strings.Contains(ua, r.token) {
			info.Browser = r.name
			if m := r.version.FindStringSubmatch(ua); m != nil {
				info.Version = m[1]
			}
			break
		}
	}
	for _, r := range osRules {
		if strings.Contains(ua, r.token) {
			info.OS = r.name
			break
		}
	}

	switch {
	case strings.Contains(ua, "iPad") || strings.Contains(ua, "Tablet") ||
		(strings.Contains(ua, "Android") && !strings.Contains(ua, "Mobile")):
		info.Device = DeviceTablet
	case strings.Contains(ua, "Mobile") || strings.Contains(ua, "iPhone"):
		info.Device = DeviceMobile
	case info.OS != "Unknown":
		info.Device = DeviceDesktop
	}
	return info
}
