// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/devfactory/reviewmaker/internal/config"
	"github.com/devfactory/reviewmaker/internal/logging"
	"github.com/devfactory/reviewmaker/pkg/models"
)

// Review events accepted by the pull request review API.
const (
	eventApprove        = "APPROVE"
	eventComment        = "COMMENT"
	eventRequestChanges = "REQUEST_CHANGES"
)

// Client submits pull request reviews through the GitHub API.
type Client struct {
	client *github.Client

	// approveAction is "approve" or "comment" and selects the review
	// event and body used on approval.
	approveAction string
}

// NewClient creates a new GitHub API client using the configured token.
// It authenticates against github.com or, for other domains, the
// GitHub Enterprise v3 endpoint, and verifies the token before
// returning.
func NewClient(cfg *config.Config) (*Client, error) {
	token := cfg.GitHub.Token
	if token == "" {
		return nil, fmt.Errorf("github token not found in configuration")
	}

	domain := cfg.GitHub.Domain
	if domain == "" {
		domain = "github.com"
	}

	var apiURL string
	if domain == "github.com" {
		apiURL = "https://api.github.com/"
	} else {
		apiURL = fmt.Sprintf("https://%s/api/v3/", domain)
	}

	logging.Debug("github configuration",
		"domain", domain,
		"api_url", apiURL,
		"token", logging.MaskSensitive(token))

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)
	if domain != "github.com" {
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("error testing github token: %w", err)
	}
	logging.Info("github authentication successful", "username", user.GetLogin())

	return &Client{client: client, approveAction: cfg.Review.ApprovePrAction}, nil
}

// ReviewPullRequest submits a review on the given pull request. When a
// pending review by the current user already exists it is submitted
// instead of creating a new one, so retried sessions do not accumulate
// duplicate drafts. It returns false when the API did not accept the
// review; callers treat that as a warning because the ticket-side
// outcome is already recorded.
func (c *Client) ReviewPullRequest(ctx context.Context, pr models.PrReference, approve bool, qbLink string, failedItems []string) (bool, error) {
	viewer, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return false, fmt.Errorf("failed to resolve github login: %w", err)
	}
	login := viewer.GetLogin()

	pendingID, err := c.findPendingReview(ctx, pr, login)
	if err != nil {
		return false, err
	}

	body, event := composeReview(approve, c.approveAction, qbLink, failedItems)
	request := &github.PullRequestReviewRequest{
		Body:  github.String(body),
		Event: github.String(event),
	}

	var review *github.PullRequestReview
	if pendingID != 0 {
		logging.Debug("submitting pending review", "review_id", pendingID)
		review, _, err = c.client.PullRequests.SubmitReview(ctx, pr.Owner, pr.Repo, pr.Number, pendingID, request)
	} else {
		review, _, err = c.client.PullRequests.CreateReview(ctx, pr.Owner, pr.Repo, pr.Number, request)
	}
	if err != nil {
		return false, fmt.Errorf("failed to submit review on %s/%s#%d: %w", pr.Owner, pr.Repo, pr.Number, err)
	}

	return review.GetID() != 0, nil
}

// findPendingReview returns the id of the current user's pending review
// on the pull request, or zero when there is none. Only the most recent
// reviews are considered.
func (c *Client) findPendingReview(ctx context.Context, pr models.PrReference, login string) (int64, error) {
	reviews, _, err := c.client.PullRequests.ListReviews(ctx, pr.Owner, pr.Repo, pr.Number,
		&github.ListOptions{PerPage: 20})
	if err != nil {
		return 0, fmt.Errorf("failed to list reviews on %s/%s#%d: %w", pr.Owner, pr.Repo, pr.Number, err)
	}

	for _, review := range reviews {
		if review.GetState() == "PENDING" && review.GetUser().GetLogin() == login {
			return review.GetID(), nil
		}
	}
	return 0, nil
}

// composeReview builds the review body and event. Approval with the
// "comment" action records intent without an approving event, letting
// policy gate merges elsewhere. Rejections list the failed rules in
// bold, one per line, above the QB link.
func composeReview(approve bool, approveAction, qbLink string, failedItems []string) (body, event string) {
	if approve {
		if approveAction == "approve" {
			return "QB: " + qbLink, eventApprove
		}
		return "Approved\nQB: " + qbLink, eventComment
	}

	var b strings.Builder
	for _, item := range failedItems {
		b.WriteString("**" + item + "**\n")
	}
	b.WriteString("QB: " + qbLink)
	return b.String(), eventRequestChanges
}
