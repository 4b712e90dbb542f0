package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lsm-digest/internal/ai"
	"lsm-digest/internal/model"
)

type fakeArticleStore struct {
	articles   []model.Article
	err        error
	fetchCalls int
	listArgs   []listCall
}

type listCall struct {
	day      time.Time
	category string
	fields   []string
}

func (f *fakeArticleStore) FetchForSummary(_ context.Context, _ time.Time) ([]model.Article, error) {
	f.fetchCalls++
	return f.articles, f.err
}

func (f *fakeArticleStore) ListByDate(_ context.Context, day time.Time, category string, _ int64, fields ...string) ([]model.Article, error) {
	f.listArgs = append(f.listArgs, listCall{day: day, category: category, fields: fields})
	return f.articles, f.err
}

type fakeSummaryStore struct {
	upserts []upsertCall
	stored  *model.DailySummary
	err     error
}

type upsertCall struct {
	day       time.Time
	summaries []model.Summary
}

func (f *fakeSummaryStore) Upsert(_ context.Context, day time.Time, summaries []model.Summary) (*model.UpsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserts = append(f.upserts, upsertCall{day: day, summaries: summaries})
	return &model.UpsertResult{DidUpsert: true, UpsertedID: "6650c0ffee"}, nil
}

func (f *fakeSummaryStore) GetByDate(_ context.Context, _ time.Time) (*model.DailySummary, error) {
	return f.stored, f.err
}

type fakeSessions struct {
	refs []ai.SessionRef
	err  error
}

func (f *fakeSessions) Ensure(_ context.Context, ref ai.SessionRef) (*ai.Session, error) {
	f.refs = append(f.refs, ref)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Session{ID: ref.SessionID, AppName: ref.AppName, UserID: ref.UserID}, nil
}

// fakeAgent answers with the text built by reply from the parts it received.
type fakeAgent struct {
	reply    func(parts []anonymizedArticle) string
	err      error
	calls    int
	received []ai.Content
}

func (f *fakeAgent) Run(_ context.Context, _ ai.SessionRef, content ai.Content) (*ai.RunReply, error) {
	f.calls++
	f.received = append(f.received, content)
	if f.err != nil {
		return nil, f.err
	}

	var parts []anonymizedArticle
	for _, p := range content.Parts[1:] {
		var a anonymizedArticle
		if err := json.Unmarshal([]byte(p.Text), &a); err != nil {
			return nil, fmt.Errorf("fake agent: bad part %q: %w", p.Text, err)
		}
		parts = append(parts, a)
	}

	text := f.reply(parts)
	raw, _ := json.Marshal([]ai.Event{{ID: "e1", Author: "agent", Content: &ai.Content{Role: "model", Parts: []ai.Part{{Text: text}}}}})
	return &ai.RunReply{Raw: raw, Events: []ai.Event{{ID: "e1", Content: &ai.Content{Parts: []ai.Part{{Text: text}}}}}}, nil
}

// echoReply summarizes every article it was sent as "S" under its category.
func echoReply(parts []anonymizedArticle) string {
	type ref struct {
		UUID    string `json:"uuid"`
		Summary string `json:"summary"`
	}
	type group struct {
		Category string `json:"category"`
		Articles []ref  `json:"articles"`
	}
	var groups []group
	pos := map[string]int{}
	for _, p := range parts {
		i, ok := pos[p.Category]
		if !ok {
			i = len(groups)
			pos[p.Category] = i
			groups = append(groups, group{Category: p.Category})
		}
		groups[i].Articles = append(groups[i].Articles, ref{UUID: p.UUID, Summary: "S"})
	}
	out, _ := json.Marshal(map[string]any{"summaries": groups})
	return string(out)
}

type fakeCache struct {
	mu       sync.Mutex
	docs     map[string]*model.DailySummary
	locked   map[string]bool
	deleted  []string
	getErr   error
	released int
}

func newFakeCache() *fakeCache {
	return &fakeCache{docs: map[string]*model.DailySummary{}, locked: map[string]bool{}}
}

func (f *fakeCache) Get(_ context.Context, day time.Time) (*model.DailySummary, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	doc, ok := f.docs[FormatDate(day)]
	return doc, ok, nil
}

func (f *fakeCache) Set(_ context.Context, day time.Time, doc *model.DailySummary) error {
	f.docs[FormatDate(day)] = doc
	return nil
}

func (f *fakeCache) Delete(_ context.Context, day time.Time) error {
	f.deleted = append(f.deleted, FormatDate(day))
	delete(f.docs, FormatDate(day))
	return nil
}

func (f *fakeCache) Lock(_ context.Context, day time.Time) (func(context.Context) error, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := FormatDate(day)
	if f.locked[key] {
		return nil, false, nil
	}
	f.locked[key] = true
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.locked, key)
		f.released++
		return nil
	}, true, nil
}

type fakePublisher struct {
	entries []model.RequestLog
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, entry model.RequestLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fixedTokens struct {
	n int
}

func (f fixedTokens) CountTokens(context.Context, ai.Content) (int, error) {
	return f.n, nil
}

type outcomeRecorder struct {
	outcomes []string
}

func (o *outcomeRecorder) ObserveSummaryRun(outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}
