package application

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bobholt/wptdash/internal/domain/model"
)

// RenderSummary produces the markdown body of the summary comment: one
// section per build with a job table, newest build last. The same markdown is
// rendered to HTML on the pull request detail page.
func RenderSummary(s *model.PullRequestSummary) string {
	pr := s.PullRequest

	var b strings.Builder
	fmt.Fprintf(&b, "# Build results for #%d\n\n", pr.Number)
	fmt.Fprintf(&b, "**%s** (`%s` into `%s`)\n\n", pr.Title, pr.HeadBranch, pr.BaseBranch)

	if len(s.Builds) == 0 {
		b.WriteString("No builds have been reported for this pull request yet.\n")
		return b.String()
	}

	for _, bd := range s.Builds {
		fmt.Fprintf(&b, "## Build %d: %s\n\n", bd.Build.Number, bd.Build.Status)

		if len(bd.Jobs) == 0 {
			b.WriteString("No jobs recorded for this build.\n\n")
			continue
		}

		b.WriteString("| Job | Product | State | Allowed to fail |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, jd := range bd.Jobs {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				formatJobNumber(jd.Job.Number),
				jd.ProductName,
				jd.Job.State,
				yesNo(jd.Job.AllowFailure),
			)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// formatJobNumber renders a fractional job number the way Travis displays it
// ("2064.1"), without float formatting artifacts.
func formatJobNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
