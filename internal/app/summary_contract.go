package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"lsm-digest/internal/ai"
	"lsm-digest/internal/model"
)

const summaryOutputContract = `Respond with a single JSON object and nothing else, shaped exactly like:
{"summaries":[{"category":"<category>","articles":[{"uuid":"<uuid of the input article>","summary":"<summary>"}]}]}
Group articles by category. Copy every uuid exactly as given and never invent one.`

// anonymizedArticle is the only view of an article the agent gets to see.
type anonymizedArticle struct {
	UUID     string `json:"uuid"`
	Category string `json:"category"`
	Article  string `json:"article"`
}

// summaryRequest holds the content sent to the agent together with the
// correlation index needed to map the reply back onto stored articles.
type summaryRequest struct {
	content ai.Content
	index   map[string]model.Article
}

func buildSummaryRequest(systemPrompt string, articles []model.Article, newID func() string) (*summaryRequest, error) {
	instruction := summaryOutputContract
	if prompt := strings.TrimSpace(systemPrompt); prompt != "" {
		instruction = prompt + "\n\n" + summaryOutputContract
	}

	texts := make([]string, 0, len(articles)+1)
	texts = append(texts, instruction)
	index := make(map[string]model.Article, len(articles))

	for _, a := range articles {
		id := newID()
		if _, taken := index[id]; taken {
			return nil, fmt.Errorf("correlation id %q generated twice", id)
		}
		index[id] = a

		part, err := json.Marshal(anonymizedArticle{UUID: id, Category: a.Category, Article: a.Article})
		if err != nil {
			return nil, fmt.Errorf("marshal article part failed: %w", err)
		}
		texts = append(texts, string(part))
	}

	return &summaryRequest{content: ai.UserText(texts...), index: index}, nil
}

type agentSummaryReply struct {
	Summaries []agentSummary `json:"summaries"`
}

type agentSummary struct {
	Category string            `json:"category"`
	Articles []agentArticleRef `json:"articles"`
}

type agentArticleRef struct {
	UUID    string `json:"uuid"`
	Summary string `json:"summary"`
}

// parseAgentSummary decodes the agent reply text strictly. Every failure
// wraps ErrAgentReplyInvalid.
func parseAgentSummary(text string) (*agentSummaryReply, error) {
	text = stripCodeFence(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrAgentReplyInvalid)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()

	var reply agentSummaryReply
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentReplyInvalid, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrAgentReplyInvalid)
	}

	if len(reply.Summaries) == 0 {
		return nil, fmt.Errorf("%w: no summaries", ErrAgentReplyInvalid)
	}
	for i, s := range reply.Summaries {
		if strings.TrimSpace(s.Category) == "" {
			return nil, fmt.Errorf("%w: summaries[%d] has no category", ErrAgentReplyInvalid, i)
		}
		if len(s.Articles) == 0 {
			return nil, fmt.Errorf("%w: summaries[%d] has no articles", ErrAgentReplyInvalid, i)
		}
		for j, a := range s.Articles {
			if strings.TrimSpace(a.UUID) == "" || strings.TrimSpace(a.Summary) == "" {
				return nil, fmt.Errorf("%w: summaries[%d].articles[%d] misses uuid or summary", ErrAgentReplyInvalid, i, j)
			}
		}
	}
	return &reply, nil
}

// rehydrate swaps correlation ids back for the stored articles, keeping the
// agent's grouping and order. It also reports how many articles were left
// out of the reply.
func (r *summaryRequest) rehydrate(reply *agentSummaryReply) ([]model.Summary, int, error) {
	seen := make(map[string]struct{}, len(r.index))
	summaries := make([]model.Summary, 0, len(reply.Summaries))

	for _, s := range reply.Summaries {
		out := model.Summary{
			Category: s.Category,
			Articles: make([]model.SummaryArticle, 0, len(s.Articles)),
		}
		for _, ref := range s.Articles {
			article, ok := r.index[ref.UUID]
			if !ok {
				return nil, 0, fmt.Errorf("%w: uuid %q", ErrUnresolvedArticle, ref.UUID)
			}
			if _, dup := seen[ref.UUID]; dup {
				return nil, 0, fmt.Errorf("%w: uuid %q referenced twice", ErrAgentReplyInvalid, ref.UUID)
			}
			seen[ref.UUID] = struct{}{}

			out.Articles = append(out.Articles, model.SummaryArticle{
				ArticleID: article.ID,
				Title:     article.Title,
				URL:       article.URL,
				AISummary: ref.Summary,
			})
		}
		summaries = append(summaries, out)
	}
	return summaries, len(r.index) - len(seen), nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// drop the language tag line
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
