package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// Whisper talks to an OpenAI-compatible /audio/transcriptions endpoint.
type Whisper struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTP *http.Client
}

func NewWhisper(baseURL, apiKey, model string, hc *http.Client) *Whisper {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "whisper-1"
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Whisper{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, Model: model, HTTP: hc}
}

func (w *Whisper) Close() error { return nil }

// MaxWhisperBytes is the upload cap of the OpenAI transcription endpoint.
const MaxWhisperBytes = 25 << 20

// Check enforces the upload cap; the endpoint decodes every common container.
func (w *Whisper) Check(_ string, size int64, _ string) error {
	if size > MaxWhisperBytes {
		return tooLarge("whisper", size, MaxWhisperBytes)
	}
	return nil
}

type verboseTranscription struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

func (w *Whisper) Transcribe(ctx context.Context, in Input) (*Result, error) {
	if err := w.Check(in.MimeType, int64(len(in.Audio)), ""); err != nil {
		return nil, err
	}
	body, contentType, err := w.multipartBody(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if w.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.APIKey)
	}

	resp, err := w.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transcription api: status %d: %s", resp.StatusCode, truncate(raw, 512))
	}

	var vt verboseTranscription
	if err := json.Unmarshal(raw, &vt); err != nil {
		return nil, fmt.Errorf("transcription api: decode: %w", err)
	}

	out := &Result{Text: vt.Text, Duration: vt.Duration}
	for _, s := range vt.Segments {
		out.Segments = append(out.Segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	for _, wd := range vt.Words {
		out.Words = append(out.Words, Word{Word: strings.TrimSpace(wd.Word), Start: wd.Start, End: wd.End})
	}
	return normalize(out), nil
}

func (w *Whisper) multipartBody(in Input) (io.Reader, string, error) {
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)

	name := in.FileName
	if name == "" {
		name = "audio"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if in.MimeType != "" {
		h.Set("Content-Type", in.MimeType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.Audio); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"model", w.Model},
		{"response_format", "verbose_json"},
		{"temperature", "0"},
		{"timestamp_granularities[]", "segment"},
		{"timestamp_granularities[]", "word"},
	}
	if in.Language != "" {
		// the API wants ISO-639-1, not a full locale
		fields = append(fields, [2]string{"language", strings.ToLower(strings.SplitN(in.Language, "-", 2)[0])})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &b, mw.FormDataContentType(), nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
