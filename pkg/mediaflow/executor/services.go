package executor

import "context"

// ImageRequest is the input to an image generation call.
type ImageRequest struct {
	Prompt          string
	Images          []string
	ReferenceImages []string
	Model           string
	AspectRatio     string
}

// VideoRequest is the input to a video generation call.
type VideoRequest struct {
	Prompt          string
	Image           string
	ReferenceImages []string
	Model           string
	Duration        float64
	AspectRatio     string
}

// VideoResult is the output of a video generation call.
type VideoResult struct {
	Video     string
	LastFrame string
}

// TextRequest is the input to a text generation call.
type TextRequest struct {
	Prompt  string
	Context string
	Model   string
}

// SpeechRequest is the input to a text-to-speech call.
type SpeechRequest struct {
	Text  string
	Voice string
	Model string
}

// ImageGenerator produces an image URI from a prompt and optional images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// VideoGenerator produces a video clip and its last frame.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req VideoRequest) (VideoResult, error)
}

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ImageDescriber describes an image in text.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, image, prompt string) (string, error)
}

// SpeechSynthesizer turns text into audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (string, error)
}

// Transcriber turns audio or video into text.
type Transcriber interface {
	Transcribe(ctx context.Context, media string) (string, error)
}

// VoiceConverter re-voices an audio clip.
type VoiceConverter interface {
	ConvertVoice(ctx context.Context, audio, voice string) (string, error)
}

// VideoProcessor performs local media processing on video clips.
// A negative frame position selects the last frame.
type VideoProcessor interface {
	Stitch(ctx context.Context, videos []string) (string, error)
	Trim(ctx context.Context, video string, start, end float64) (string, error)
	BurnCaptions(ctx context.Context, video, text, style string) (string, error)
	ExtractFrame(ctx context.Context, video string, position float64) (string, error)
	MergeAudio(ctx context.Context, video, audio string) (string, error)
}

// OutputSink persists a produced artifact to an external location.
type OutputSink interface {
	SaveOutput(ctx context.Context, folder, name, uri string) error
}

// Services bundles the collaborators behaviors call. A nil collaborator
// makes the node types that need it fail with ErrServiceUnavailable.
type Services struct {
	Images      ImageGenerator
	Videos      VideoGenerator
	Text        TextGenerator
	Describer   ImageDescriber
	Speech      SpeechSynthesizer
	Transcriber Transcriber
	Voice       VoiceConverter
	Processor   VideoProcessor
	Outputs     OutputSink
}
