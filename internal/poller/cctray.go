package poller

import (
	"context"
	"encoding/xml"
	"strings"
	"time"
)

// cctrayTimeLayouts are the lastBuildTime formats seen in the wild; many
// servers omit the zone.
var cctrayTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// CCTray reads the cc.xml feed format understood by CCMenu and friends.
type CCTray struct {
	client *Client
}

// NewCCTray creates a CCTray provider.
func NewCCTray(client *Client) *CCTray {
	return &CCTray{client: client}
}

type cctrayProjects struct {
	XMLName  xml.Name        `xml:"Projects"`
	Projects []cctrayProject `xml:"Project"`
}

type cctrayProject struct {
	Name            string `xml:"name,attr"`
	Activity        string `xml:"activity,attr"`
	LastBuildStatus string `xml:"lastBuildStatus,attr"`
	LastBuildLabel  string `xml:"lastBuildLabel,attr"`
	LastBuildTime   string `xml:"lastBuildTime,attr"`
	WebURL          string `xml:"webUrl,attr"`
}

// Fetch implements [Provider]. A feed without the wanted project yields an
// empty page.
func (c *CCTray) Fetch(ctx context.Context, src SourceInfo) (Page, error) {
	body, err := get(ctx, c.client, src, src.URL, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return Page{}, err
	}

	var feed cctrayProjects
	if err := xml.Unmarshal(body, &feed); err != nil {
		return Page{}, &FetchError{Kind: ErrDecode, Source: src.Key, Err: err}
	}

	want := src.Project
	if want == "" {
		want = src.Name
	}
	for _, p := range feed.Projects {
		if p.Name != want {
			continue
		}
		return Page{Items: []Item{{
			ID:          p.LastBuildLabel,
			Status:      src.mapStatus(p.LastBuildStatus, cctrayStatus),
			CompletedAt: parseCCTrayTime(p.LastBuildTime),
			URL:         p.WebURL,
		}}}, nil
	}
	return Page{}, nil
}

// BrowseURL implements [Provider]. CCTray has no separate web root, so the
// feed itself is returned.
func (c *CCTray) BrowseURL(src SourceInfo) string {
	return src.URL
}

func parseCCTrayTime(s string) time.Time {
	for _, layout := range cctrayTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// cctrayStatus normalizes lastBuildStatus values.
func cctrayStatus(raw string) string {
	switch strings.ToLower(raw) {
	case "success":
		return "success"
	case "failure":
		return "failed"
	case "exception":
		return "error"
	default:
		return "unknown"
	}
}
