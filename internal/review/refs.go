package review

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/devfactory/reviewmaker/pkg/models"
)

var ticketKeyRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d+$`)

// ParseTicketRef normalizes operator input into an issue key and its
// browse URL. It accepts either a browse-style ticket URL on the
// configured tracker or a bare issue key, and rejects anything else
// before any network call is made.
func ParseTicketRef(jiraBaseURL, raw string) (key, browseURL string, err error) {
	raw = strings.TrimSpace(raw)
	base := strings.TrimSuffix(jiraBaseURL, "/")

	if rest, ok := strings.CutPrefix(raw, base+"/browse/"); ok {
		if !ticketKeyRegex.MatchString(rest) {
			return "", "", fmt.Errorf("%w: %s", ErrInvalidReference, raw)
		}
		return rest, raw, nil
	}

	if !ticketKeyRegex.MatchString(raw) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidReference, raw)
	}
	return raw, base + "/browse/" + raw, nil
}

// ParsePrURL parses a pull request URL of the form
// https://<domain>/<owner>/<repo>/pull/<number>, with an optional
// trailing /files segment.
func ParsePrURL(domain, raw string) (models.PrReference, error) {
	prRegex := regexp.MustCompile(
		`^https://` + regexp.QuoteMeta(domain) + `/([-A-Za-z0-9_.]+)/([-A-Za-z0-9_.]+)/pull/(\d+)(/files)?$`)

	match := prRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return models.PrReference{}, fmt.Errorf("%w: %s", ErrInvalidPRURL, raw)
	}

	number, err := strconv.Atoi(match[3])
	if err != nil {
		return models.PrReference{}, fmt.Errorf("%w: %s", ErrInvalidPRURL, raw)
	}

	return models.PrReference{
		Owner:  match[1],
		Repo:   match[2],
		Number: number,
	}, nil
}
