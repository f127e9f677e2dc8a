package agents

import (
	"context"
	"errors"
	"strings"
	"sync"

	"aitutor/internal/retrieval"
	"aitutor/internal/store"
	"aitutor/internal/types"
)

// fakeLLM scripts model behavior per prompt and records every call.
type fakeLLM struct {
	mu      sync.Mutex
	calls   []string
	reply   string
	err     error
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) answer(prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(prompt)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	return f.answer(prompt)
}

func (f *fakeLLM) CompleteWithSystem(_ context.Context, system, user string) (string, error) {
	return f.answer(system + "\n" + user)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLLM) sawPromptContaining(sub string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

var errUnavailable = errors.New("model unavailable")

// fakeSearcher returns canned hits and records the options it was called
// with.
type fakeSearcher struct {
	mu    sync.Mutex
	hits  []types.RetrievalHit
	err   error
	opts  []retrieval.SearchOptions
	query string
}

func (f *fakeSearcher) Search(_ context.Context, query string, opts retrieval.SearchOptions) ([]types.RetrievalHit, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.query = query
	f.mu.Unlock()
	return f.hits, f.err
}

type fakeLibrary struct {
	chapters       store.ChapterList
	chaptersErr    error
	rows           []store.ContentRow
	rowsErr        error
	listCalls      int
	queriedSubject string
}

func (f *fakeLibrary) ListChapters(_ context.Context, subject, _ string) (store.ChapterList, error) {
	f.listCalls++
	f.queriedSubject = subject
	return f.chapters, f.chaptersErr
}

func (f *fakeLibrary) QueryContent(_ context.Context, subject, _, _ string, _ int) ([]store.ContentRow, error) {
	f.queriedSubject = subject
	return f.rows, f.rowsErr
}

type fakeMastery struct {
	mu       sync.Mutex
	outcomes []store.GradeOutcome
	err      error
}

func (f *fakeMastery) UpdateMastery(_ context.Context, studentID, topicKey, subject string, outcome store.GradeOutcome) (store.MasteryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return store.MasteryRecord{}, f.err
	}
	f.outcomes = append(f.outcomes, outcome)
	return store.MasteryRecord{StudentID: studentID, TopicKey: topicKey, Subject: subject, MasteryScore: 0.42}, nil
}
