package poller

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// notificationsPageSize is how many unread notifications one request asks for.
const notificationsPageSize = 50

// Notifications reads the unread GitHub notifications of the token's user.
//
// Only Token, URL (API base override), Headers and Timeout of the
// [SourceInfo] are used.
type Notifications struct {
	client *Client
}

// NewNotifications creates a GitHub notifications provider.
func NewNotifications(client *Client) *Notifications {
	return &Notifications{client: client}
}

type gitHubNotification struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	UpdatedAt time.Time `json:"updated_at"`
	Subject   struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"subject"`
	Repository struct {
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	} `json:"repository"`
}

// Fetch implements [Provider]. The result is carried in Page.Notifications,
// newest first.
func (n *Notifications) Fetch(ctx context.Context, src SourceInfo) (Page, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(notificationsPageSize))
	endpoint := gitHubAPIURL(src) + "/notifications?" + q.Encode()

	body, err := get(ctx, n.client, src, endpoint, gitHubHeaders(src))
	if err != nil {
		return Page{}, err
	}

	var raw []gitHubNotification
	if err := decodeJSON(src, body, &raw); err != nil {
		return Page{}, err
	}

	page := Page{Notifications: make([]Notification, 0, len(raw))}
	for _, item := range raw {
		page.Notifications = append(page.Notifications, Notification{
			ID:         item.ID,
			Repository: item.Repository.FullName,
			Title:      item.Subject.Title,
			Reason:     item.Reason,
			UpdatedAt:  item.UpdatedAt,
			URL:        notificationURL(src, item),
		})
	}
	sort.SliceStable(page.Notifications, func(i, j int) bool {
		return page.Notifications[i].UpdatedAt.After(page.Notifications[j].UpdatedAt)
	})
	return page, nil
}

// BrowseURL implements [Provider].
func (n *Notifications) BrowseURL(SourceInfo) string {
	return gitHubWebBase + "/notifications"
}

// notificationURL turns the subject's API URL into its web page, e.g.
// .../repos/o/r/pulls/7 into https://github.com/o/r/pull/7. Subjects without
// a recognisable URL (releases, discussions) fall back to the repository.
func notificationURL(src SourceInfo, item gitHubNotification) string {
	prefix := gitHubAPIURL(src) + "/repos/"
	rest, ok := strings.CutPrefix(item.Subject.URL, prefix)
	if !ok {
		return item.Repository.HTMLURL
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 4 {
		return item.Repository.HTMLURL
	}
	switch parts[2] {
	case "pulls":
		parts[2] = "pull"
	case "commits":
		parts[2] = "commit"
	case "issues":
	default:
		return item.Repository.HTMLURL
	}
	return gitHubWebBase + "/" + strings.Join(parts, "/")
}
