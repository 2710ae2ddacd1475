package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/devfactory/reviewmaker/internal/config"
	"github.com/devfactory/reviewmaker/internal/gdocs"
	"github.com/devfactory/reviewmaker/internal/github"
	"github.com/devfactory/reviewmaker/internal/jira"
	"github.com/devfactory/reviewmaker/internal/logging"
	"github.com/devfactory/reviewmaker/internal/output"
	"github.com/devfactory/reviewmaker/internal/review"
)

// reviewCmd runs the interactive review loop: one session per ticket
// reference entered by the operator, until EOF or "quit".
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run the interactive review loop",
	Long: `Run the interactive review loop.

For each JIRA ticket or issue key entered, the tool validates the ticket,
claims the peer review, moves the ticket to Code Review, creates and
pre-fills a QB checklist spreadsheet, and then waits for a decision:

  open qb (o)   open the QB document in the browser
  approve (a)   approve the review and the pull request
  reject (r)    reject the review, request changes, record history
  skip (s)      leave the ticket as-is and move on

A failed session never stops the loop; fix the cause and enter the
ticket again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		return runReviewLoop(cmd.Context(), cfgFile)
	},
}

// stdinPrompter reads operator commands from standard input.
type stdinPrompter struct {
	reader *bufio.Reader
	ui     *output.UI
}

func (p *stdinPrompter) ReadCommand(prompt string) (string, error) {
	p.ui.Prompt("%s", prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runReviewLoop(ctx context.Context, cfgFile string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ui := output.New()

	jiraClient, err := jira.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize jira client: %w", err)
	}

	reviewer, err := jiraClient.Myself(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve jira user: %w", err)
	}
	logging.Info("starting review loop", "reviewer", reviewer.Username)

	githubClient, err := github.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize github client: %w", err)
	}

	docsClient, err := gdocs.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize google client: %w", err)
	}

	qbService := review.NewQbService(docsClient, cfg.Google.QbTemplateID, cfg.Google.QbParentFolderID, cfg.Review.SheetPages)
	historyRecorder := review.NewHistoryRecorder(docsClient, cfg.History.DocumentID, cfg.History.SheetName, cfg.History.SystemSheet)

	reader := bufio.NewReader(os.Stdin)
	prompter := &stdinPrompter{reader: reader, ui: ui}

	// Repository-name -> folder-id cache, shared across sessions for
	// the process lifetime.
	folders := make(map[string]string)

	for {
		ref, err := prompter.ReadCommand("Enter jira ticket or jira issue key to start review (quit to exit): ")
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if ref == "" {
			continue
		}
		if strings.EqualFold(ref, "quit") || strings.EqualFold(ref, "exit") {
			return nil
		}

		now := time.Now().UTC()
		if cfg.Review.UseLocalDate {
			now = time.Now()
		}
		date := now.Format("2006-01-02 15:04")

		session := review.NewSession(review.Deps{
			Config:   cfg,
			Tickets:  jiraClient,
			Docs:     docsClient,
			Reviews:  githubClient,
			Prompter: prompter,
			UI:       ui,
			Qb:       qbService,
			History:  historyRecorder,
			Reviewer: reviewer,
			Folders:  folders,
			OpenLink: browser.OpenURL,
		})

		qbLink, err := session.Start(ctx, ref, date)
		if err != nil {
			reportSessionError(ui, err)
			continue
		}

		ui.Print("")
		ui.Print("QB url: %s", qbLink)
		if err := clipboard.WriteAll(qbLink); err == nil {
			ui.Print("Url copied to clipboard")
		} else {
			logging.Debug("clipboard unavailable", "error", err)
		}

		outcome, err := session.Finish(ctx)
		if err != nil {
			reportSessionError(ui, err)
			continue
		}

		logging.Info("review session finished", "ticket", ref, "outcome", outcome.String())
		ui.Print("=========================================")
	}
}

// reportSessionError applies the two-tier error policy: recoverable
// failures get a short red message, everything else is logged with full
// detail as well. Neither stops the loop.
func reportSessionError(ui *output.UI, err error) {
	if review.IsRecoverable(err) {
		ui.Error("%v", err)
		return
	}
	logging.Error("review session failed", "error", err)
	ui.Error("%v", err)
}
