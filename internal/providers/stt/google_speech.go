package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

type GoogleSpeech struct {
	c *speech.Client

	Model string
}

func NewGoogleSpeech(ctx context.Context, opts ...option.ClientOption) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{c: c, Model: "latest_long"}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// MaxInlineBytes is the largest audio the v1 API accepts as request content.
// Longer recordings must be read from Cloud Storage.
const MaxInlineBytes = 10 << 20

// ReadsURI reports whether the recognizer can fetch the object itself.
func (g *GoogleSpeech) ReadsURI(uri string) bool { return strings.HasPrefix(uri, "gs://") }

// Check rejects containers v1 cannot decode (mp3, m4a and friends) and inline
// audio above MaxInlineBytes.
func (g *GoogleSpeech) Check(mimeType string, size int64, uri string) error {
	if _, ok := encodingFor(mimeType); !ok {
		return fmt.Errorf("%w: google speech cannot decode %q, use wav, flac, ogg/opus, webm/opus or amr",
			ErrUnsupportedAudio, mimeType)
	}
	if !g.ReadsURI(uri) && size > MaxInlineBytes {
		return tooLarge("google speech", size, MaxInlineBytes)
	}
	return nil
}

// Transcribe runs a long-running recognition with word offsets enabled, reading
// the archived object when in.URI is a gs:// path and inline bytes otherwise.
// Each recognition result becomes one segment.
func (g *GoogleSpeech) Transcribe(ctx context.Context, in Input) (*Result, error) {
	if err := g.Check(in.MimeType, int64(len(in.Audio)), in.URI); err != nil {
		return nil, err
	}
	enc, _ := encodingFor(in.MimeType)

	language := in.Language
	if language == "" {
		language = "en-US"
	}

	audio := &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: in.Audio},
	}
	if g.ReadsURI(in.URI) {
		audio = &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: in.URI},
		}
	}

	op, err := g.c.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   enc,
			LanguageCode:               language,
			Model:                      g.Model,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
		},
		Audio: audio,
	})
	if err != nil {
		return nil, err
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return fromRecognition(resp.GetResults()), nil
}

func fromRecognition(results []*speechpb.SpeechRecognitionResult) *Result {
	out := &Result{}
	var texts []string
	prevEnd := 0.0

	for _, r := range results {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		alt := r.GetAlternatives()[0]

		start := prevEnd
		end := prevEnd
		if r.GetResultEndTime() != nil {
			end = r.GetResultEndTime().AsDuration().Seconds()
		}
		for i, w := range alt.GetWords() {
			ws := w.GetStartTime().AsDuration().Seconds()
			we := w.GetEndTime().AsDuration().Seconds()
			if i == 0 {
				start = ws
			}
			if we > end {
				end = we
			}
			out.Words = append(out.Words, Word{Word: w.GetWord(), Start: ws, End: we})
		}

		text := strings.TrimSpace(alt.GetTranscript())
		if text != "" {
			texts = append(texts, text)
			out.Segments = append(out.Segments, Segment{Start: start, End: end, Text: text})
		}
		prevEnd = end
	}

	out.Text = strings.Join(texts, " ")
	out.Duration = prevEnd
	return normalize(out)
}

// encodingFor maps a MIME type to a v1 encoding. ok is false for formats v1
// cannot decode; MP3 needs the v1p1beta1 API.
func encodingFor(mimeType string) (enc speechpb.RecognitionConfig_AudioEncoding, ok bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "audio/flac", "audio/x-flac":
		return speechpb.RecognitionConfig_FLAC, true
	case "audio/ogg", "audio/opus", "application/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS, true
	case "audio/webm", "video/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS, true
	case "audio/amr":
		return speechpb.RecognitionConfig_AMR, true
	case "audio/amr-wb":
		return speechpb.RecognitionConfig_AMR_WB, true
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		// the RIFF header carries rate and encoding
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, true
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, false
	}
}
