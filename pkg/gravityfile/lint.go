package gravityfile

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/miekg/dns"
)

// Issue is a non-fatal problem found in an otherwise valid document.
type Issue struct {
	Field   string
	Value   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %q: %s", i.Field, i.Value, i.Message)
}

// Lint reports suspicious content that does not prevent an import.
func (d *Document) Lint() []Issue {
	var issues []Issue

	seenGroups := make(map[string]bool, len(d.Groups))
	for _, group := range d.Groups {
		if seenGroups[group.Name] {
			issues = append(issues, Issue{
				Field:   "group",
				Value:   group.Name,
				Message: "declared more than once, the last declaration is used for adlist assignments",
			})
		}
		seenGroups[group.Name] = true
	}

	seenURLs := make(map[string]bool, len(d.Adlists))
	for _, adlist := range d.Adlists {
		if seenURLs[adlist.URL] {
			issues = append(issues, Issue{Field: "adlist", Value: adlist.URL, Message: "declared more than once"})
		}
		seenURLs[adlist.URL] = true

		if err := checkAddress(adlist.URL); err != nil {
			issues = append(issues, Issue{Field: "adlist", Value: adlist.URL, Message: err.Error()})
		}
	}

	return issues
}

func checkAddress(address string) error {
	u, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "file":
		if u.Path == "" {
			return fmt.Errorf("file url has no path")
		}
		return nil
	case "":
		return fmt.Errorf("missing url scheme")
	default:
		return fmt.Errorf("unsupported url scheme %s", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("missing host")
	}
	if ip := net.ParseIP(host); ip != nil {
		return nil
	}
	if _, err := normalizeDomain(host); err != nil {
		return fmt.Errorf("invalid host %s: %w", host, err)
	}
	return nil
}

func normalizeDomain(name string) (string, error) {
	lower := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if lower == "" {
		return "", fmt.Errorf("empty domain")
	}
	if _, ok := dns.IsDomainName(lower); !ok {
		return "", fmt.Errorf("invalid domain")
	}
	return lower, nil
}
