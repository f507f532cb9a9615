package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	calls int
}

func (f *fakeResolver) ResolveVideoID(rawURL string) (string, error) {
	f.calls++
	if !strings.Contains(rawURL, "youtube.com/watch?v=") {
		return "", errors.New("not a video url")
	}
	return strings.SplitN(rawURL, "v=", 2)[1], nil
}

type fakeFetcher struct {
	tracks     []CaptionTrack
	listErr    error
	captions   map[string]string
	fetchErr   error
	fetched    []CaptionTrack
	listCalled bool
}

func (f *fakeFetcher) ListCaptionTracks(_ context.Context, _ string) ([]CaptionTrack, error) {
	f.listCalled = true
	return f.tracks, f.listErr
}

func (f *fakeFetcher) FetchCaption(_ context.Context, track CaptionTrack) (string, error) {
	f.fetched = append(f.fetched, track)
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return f.captions[track.LanguageCode], nil
}

type fakeGenerator struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

var longText = strings.Repeat("transcript words ", 10)

func TestSummarizeManualTextSkipsExtraction(t *testing.T) {
	resolver := &fakeResolver{}
	fetcher := &fakeFetcher{}
	generator := &fakeGenerator{reply: "# Study Notes"}
	s := New(resolver, fetcher, generator, 50, 50000)

	summary, err := s.Summarize(context.Background(), Input{URL: "https://www.youtube.com/watch?v=abc", Text: longText})
	require.NoError(t, err)

	assert.Equal(t, "# Study Notes", summary)
	assert.Zero(t, resolver.calls)
	assert.False(t, fetcher.listCalled)
	assert.Contains(t, generator.prompt, strings.TrimSpace(longText))
}

func TestSummarizeShortManualTextNeedsManual(t *testing.T) {
	generator := &fakeGenerator{}
	s := New(&fakeResolver{}, &fakeFetcher{}, generator, 50, 50000)

	_, err := s.Summarize(context.Background(), Input{Text: "too short"})
	require.ErrorIs(t, err, ErrNeedsManualTranscript)
	assert.Empty(t, generator.prompt)
}

func TestSummarizeRequiresInput(t *testing.T) {
	s := New(&fakeResolver{}, &fakeFetcher{}, &fakeGenerator{}, 50, 50000)

	_, err := s.Summarize(context.Background(), Input{})
	require.ErrorIs(t, err, ErrInputRequired)
}

func TestSummarizeInvalidURL(t *testing.T) {
	s := New(&fakeResolver{}, &fakeFetcher{}, &fakeGenerator{}, 50, 50000)

	_, err := s.Summarize(context.Background(), Input{URL: "https://example.com/nope"})
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestSummarizePrefersEnglishTrack(t *testing.T) {
	fetcher := &fakeFetcher{
		tracks: []CaptionTrack{
			{LanguageCode: "de", BaseURL: "de"},
			{LanguageCode: "en", BaseURL: "en"},
		},
		captions: map[string]string{"de": "deutsch", "en": longText},
	}
	generator := &fakeGenerator{reply: "ok"}
	s := New(&fakeResolver{}, fetcher, generator, 50, 50000)

	_, err := s.Summarize(context.Background(), Input{URL: "https://www.youtube.com/watch?v=abc"})
	require.NoError(t, err)
	require.Len(t, fetcher.fetched, 1)
	assert.Equal(t, "en", fetcher.fetched[0].LanguageCode)
}

func TestSummarizeExtractionFailuresDegradeToManual(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
	}{
		{"list fails", &fakeFetcher{listErr: errors.New("blocked")}},
		{"no tracks", &fakeFetcher{}},
		{"download fails", &fakeFetcher{tracks: []CaptionTrack{{LanguageCode: "en"}}, fetchErr: errors.New("403")}},
		{"transcript too short", &fakeFetcher{tracks: []CaptionTrack{{LanguageCode: "fr"}}, captions: map[string]string{"fr": "bonjour"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &fakeGenerator{}
			s := New(&fakeResolver{}, tt.fetcher, generator, 50, 50000)

			_, err := s.Summarize(context.Background(), Input{URL: "https://www.youtube.com/watch?v=abc"})
			require.ErrorIs(t, err, ErrNeedsManualTranscript)
			assert.Empty(t, generator.prompt)
		})
	}
}

func TestSummarizeTruncatesTranscript(t *testing.T) {
	generator := &fakeGenerator{reply: "ok"}
	s := New(&fakeResolver{}, &fakeFetcher{}, generator, 50, 60)

	text := strings.Repeat("a", 60) + strings.Repeat("b", 40)
	_, err := s.Summarize(context.Background(), Input{Text: text})
	require.NoError(t, err)

	assert.Contains(t, generator.prompt, strings.Repeat("a", 60)+"\n")
	assert.NotContains(t, generator.prompt, strings.Repeat("a", 60)+"b")
}

func TestSummarizeWrapsGeneratorError(t *testing.T) {
	quota := errors.New("quota exceeded")
	s := New(&fakeResolver{}, &fakeFetcher{}, &fakeGenerator{err: quota}, 50, 50000)

	_, err := s.Summarize(context.Background(), Input{Text: longText})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.ErrorIs(t, err, quota)
	assert.Equal(t, "AI error: quota exceeded", err.Error())
}

func TestPreferredTrackFallsBackToFirst(t *testing.T) {
	track, ok := PreferredTrack([]CaptionTrack{{LanguageCode: "ja"}, {LanguageCode: "es"}})
	require.True(t, ok)
	assert.Equal(t, "ja", track.LanguageCode)

	_, ok = PreferredTrack(nil)
	assert.False(t, ok)
}

func TestGeminiWithoutAPIKeyFailsOnGenerate(t *testing.T) {
	g, err := NewGemini(context.Background(), "", "gemini-1.5-flash-latest")
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, errGeminiNotConfigured)
}
