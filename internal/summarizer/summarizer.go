// Package summarizer 获取视频字幕（或使用手动粘贴的文本）并调用生成式模型输出学习笔记。
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

var (
	ErrInputRequired         = errors.New("YouTube URL or manual transcript text is required")
	ErrInvalidURL            = errors.New("Invalid YouTube URL")
	ErrNeedsManualTranscript = errors.New("Could not extract transcript automatically. Please paste the transcript manually below.")
)

// UpstreamError 表示生成式模型调用失败，保留原始错误
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "AI error: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

type VideoIDResolver interface {
	ResolveVideoID(rawURL string) (string, error)
}

type CaptionTrack struct {
	LanguageCode string
	BaseURL      string
}

type CaptionFetcher interface {
	ListCaptionTracks(ctx context.Context, videoID string) ([]CaptionTrack, error)
	FetchCaption(ctx context.Context, track CaptionTrack) (string, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Input struct {
	URL  string
	Text string
}

type Summarizer struct {
	resolver  VideoIDResolver
	fetcher   CaptionFetcher
	generator TextGenerator
	minLength int
	maxLength int
}

func New(resolver VideoIDResolver, fetcher CaptionFetcher, generator TextGenerator, minLength, maxLength int) *Summarizer {
	return &Summarizer{
		resolver:  resolver,
		fetcher:   fetcher,
		generator: generator,
		minLength: minLength,
		maxLength: maxLength,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, in Input) (string, error) {
	transcript := strings.TrimSpace(in.Text)

	// 有手动粘贴的文本时直接使用，不再访问网络
	if transcript == "" {
		url := strings.TrimSpace(in.URL)
		if url == "" {
			return "", ErrInputRequired
		}

		videoID, err := s.resolver.ResolveVideoID(url)
		if err != nil {
			return "", ErrInvalidURL
		}

		transcript = s.extract(ctx, videoID)
	}

	if utf8.RuneCountInString(transcript) < s.minLength {
		return "", ErrNeedsManualTranscript
	}

	slog.Info("开始生成摘要", "chars", utf8.RuneCountInString(transcript))

	summary, err := s.generator.Generate(ctx, BuildPrompt(truncate(transcript, s.maxLength)))
	if err != nil {
		return "", &UpstreamError{Err: err}
	}

	return summary, nil
}

// extract 自动提取失败时只记录日志并返回空串，由调用方提示用户手动粘贴
func (s *Summarizer) extract(ctx context.Context, videoID string) string {
	tracks, err := s.fetcher.ListCaptionTracks(ctx, videoID)
	if err != nil {
		slog.Warn("获取字幕列表失败", "video_id", videoID, "error", err)
		return ""
	}

	track, ok := PreferredTrack(tracks)
	if !ok {
		slog.Warn("视频没有可用字幕", "video_id", videoID)
		return ""
	}

	text, err := s.fetcher.FetchCaption(ctx, track)
	if err != nil {
		slog.Warn("下载字幕失败", "video_id", videoID, "language", track.LanguageCode, "error", err)
		return ""
	}

	return strings.TrimSpace(text)
}

// PreferredTrack 优先选择英文字幕，否则选择第一条
func PreferredTrack(tracks []CaptionTrack) (CaptionTrack, bool) {
	if len(tracks) == 0 {
		return CaptionTrack{}, false
	}
	for _, t := range tracks {
		if t.LanguageCode == "en" {
			return t, true
		}
	}
	return tracks[0], true
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

const promptTemplate = `You are an expert study assistant. Create a high-quality, structured study guide from this content.

Use Markdown:
# Study Notes & Summary

## 📝 Executive Summary
One solid paragraph summarizing everything.

## 💡 Key Lessons
Main takeaways and concepts.

## 📓 Structured Notes
Detailed notes organized by topic.

## 🏁 Conclusion
Final thoughts.

Content:
%s
`

func BuildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, transcript)
}
