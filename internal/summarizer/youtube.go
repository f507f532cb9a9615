package summarizer

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// YouTube 通过 kkdai/youtube 解析视频 ID 和字幕列表，再直接下载 timedtext 文档
type YouTube struct {
	client     *youtube.Client
	httpClient *http.Client
	userAgent  string
}

func NewYouTube(httpClient *http.Client, userAgent string) *YouTube {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTube{
		client:     &youtube.Client{HTTPClient: httpClient},
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (y *YouTube) ResolveVideoID(rawURL string) (string, error) {
	return youtube.ExtractVideoID(rawURL)
}

func (y *YouTube) ListCaptionTracks(ctx context.Context, videoID string) ([]CaptionTrack, error) {
	video, err := y.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, err
	}

	tracks := make([]CaptionTrack, 0, len(video.CaptionTracks))
	for _, t := range video.CaptionTracks {
		tracks = append(tracks, CaptionTrack{
			LanguageCode: t.LanguageCode,
			BaseURL:      t.BaseURL,
		})
	}

	return tracks, nil
}

func (y *YouTube) FetchCaption(ctx context.Context, track CaptionTrack) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
	if err != nil {
		return "", err
	}
	if y.userAgent != "" {
		req.Header.Set("User-Agent", y.userAgent)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption download returned %s", resp.Status)
	}

	return ParseTimedText(resp.Body)
}

type timedText struct {
	Texts []string `xml:"text"`
}

// ParseTimedText 把 <transcript><text>...</text></transcript> 文档拼接成纯文本。
// 字幕内容里的实体经常被转义两次，因此 xml 解码之后再做一次 html 反转义。
func ParseTimedText(r io.Reader) (string, error) {
	var doc timedText
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		t = strings.TrimSpace(html.UnescapeString(t))
		if t != "" {
			parts = append(parts, t)
		}
	}

	return strings.Join(parts, " "), nil
}
