package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/timelyagent/timely/internal/llm"
	"github.com/timelyagent/timely/internal/logging"
)

const (
	// MaxSearchResults caps how many inbox candidates are classified per
	// lookup.
	MaxSearchResults = 50

	// MaxChoices caps how many candidates are offered for selection.
	MaxChoices = 5

	classifyConcurrency = 5
)

// priorityKeywords mark subjects that usually carry the transactional
// payload; matching choices are surfaced first.
var priorityKeywords = []string{"order", "confirmation", "receipt", "invoice", "booking", "reservation"}

// Pipeline finds and extracts the emails behind a user request.
type Pipeline struct {
	source  MessageSource
	llm     Completer
	logger  *slog.Logger
	metrics ClassificationRecorder
}

// NewPipeline creates a lookup pipeline over a mailbox and a completion
// client.
func NewPipeline(source MessageSource, completer Completer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source: source,
		llm:    completer,
		logger: logger.With(logging.Service("gmail")),
	}
}

// SetMetrics attaches a classification outcome recorder.
func (p *Pipeline) SetMetrics(rec ClassificationRecorder) {
	p.metrics = rec
}

func (p *Pipeline) recordClassification(ctx context.Context, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordClassification(ctx, outcome)
	}
}

// FindInformation searches the inbox for messages from vendor and
// classifies each candidate for relevance to the user request. Candidates
// that fail to fetch or classify are skipped and counted; only when every
// candidate fails does the lookup itself fail.
func (p *Pipeline) FindInformation(ctx context.Context, vendor, userRequest string) (*LookupResult, error) {
	query := fmt.Sprintf("%q in:inbox -category:promotions", vendor)
	msgs, err := p.source.Search(ctx, query, MaxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("failed to search inbox: %w", err)
	}
	if len(msgs) == 0 {
		return &LookupResult{
			Context: fmt.Sprintf("I couldn't find any messages from %s in your inbox.", vendor),
		}, nil
	}

	type verdict struct {
		choice   Choice
		relevant bool
		failed   bool
	}
	verdicts := make([]verdict, len(msgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(classifyConcurrency)
	for i, ref := range msgs {
		g.Go(func() error {
			full, err := p.source.GetMessage(gctx, ref.Id)
			if err != nil {
				p.logger.Warn("skipping unfetchable candidate",
					logging.MessageID(ref.Id), logging.Err(err))
				p.recordClassification(gctx, "failed")
				verdicts[i].failed = true
				return nil
			}

			subject := HeaderValue(full, "Subject")
			content := ExtractContent(gctx, p.source, full)
			answer, err := p.llm.Complete(gctx, llm.RelevancePrompt(userRequest, subject, content), llm.RelevanceMaxTokens)
			if err != nil {
				p.logger.Warn("skipping unclassifiable candidate",
					logging.MessageID(ref.Id), logging.Err(err))
				p.recordClassification(gctx, "failed")
				verdicts[i].failed = true
				return nil
			}

			if isRelevantAnswer(answer) {
				p.recordClassification(gctx, "relevant")
				verdicts[i] = verdict{
					relevant: true,
					choice: Choice{
						ID:   full.Id,
						Text: fmt.Sprintf("%s (from %s)", subject, HeaderValue(full, "Date")),
					},
				}
			} else {
				p.recordClassification(gctx, "irrelevant")
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	skipped := 0
	var relevant []Choice
	for _, v := range verdicts {
		switch {
		case v.failed:
			skipped++
		case v.relevant:
			relevant = append(relevant, v.choice)
		}
	}

	if skipped == len(msgs) {
		return nil, fmt.Errorf("could not classify any of the %d candidate messages", len(msgs))
	}
	if len(relevant) == 0 {
		return &LookupResult{
			Skipped: skipped,
			Context: fmt.Sprintf("I found messages from %s but none seemed relevant to your request.", vendor),
		}, nil
	}

	choices := prioritizeChoices(relevant)
	if len(choices) > MaxChoices {
		choices = choices[:MaxChoices]
	}
	return &LookupResult{
		NeedsSelection: true,
		Choices:        choices,
		Skipped:        skipped,
	}, nil
}

// isRelevantAnswer interprets a relevance classification. The model is
// asked for a single word but occasionally pads it, so the check is a
// substring match that rejects "irrelevant" first.
func isRelevantAnswer(answer string) bool {
	lower := strings.ToLower(answer)
	return strings.Contains(lower, "relevant") && !strings.Contains(lower, "irrelevant")
}

// prioritizeChoices moves choices whose display text contains a priority
// keyword to the front, preserving relative order within each group.
func prioritizeChoices(choices []Choice) []Choice {
	prioritized := make([]Choice, 0, len(choices))
	var rest []Choice
	for _, c := range choices {
		if hasPriorityKeyword(c.Text) {
			prioritized = append(prioritized, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(prioritized, rest...)
}

func hasPriorityKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range priorityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
