package executor

import (
	"context"
	"strings"
	"time"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

// DefaultVideoCooldown is the wait after a successful video generation,
// keeping consecutive calls under the provider's rate limit.
const DefaultVideoCooldown = 2 * time.Second

// DefaultSyllablesPerChunk is the chunk size used when a chunker node does
// not configure one.
const DefaultSyllablesPerChunk = 8

// DefaultSeparator joins combined text.
const DefaultSeparator = "\n\n"

// ValidateFunc checks a request before it runs.
type ValidateFunc func(req Request) error

// RunFunc performs the work of a behavior.
type RunFunc func(ctx context.Context, req Request) (graph.Data, error)

// NewBehavior builds a Behavior from functions. A nil validate accepts
// every request.
func NewBehavior(validate ValidateFunc, run RunFunc) Behavior {
	return &funcBehavior{validate: validate, run: run}
}

type funcBehavior struct {
	validate ValidateFunc
	run      RunFunc
}

func (b *funcBehavior) Validate(req Request) error {
	if b.validate == nil {
		return nil
	}
	return b.validate(req)
}

func (b *funcBehavior) Run(ctx context.Context, req Request) (graph.Data, error) {
	return b.run(ctx, req)
}

type localBehavior struct{ funcBehavior }

func (localBehavior) Local() {}

type cooledBehavior struct {
	funcBehavior
	wait time.Duration
}

func (b *cooledBehavior) Cooldown() time.Duration { return b.wait }

// RegistryOption configures NewDefaultRegistry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	videoCooldown time.Duration
}

// WithVideoCooldown sets the wait after a successful video generation.
// Default: 2s. Zero disables it.
func WithVideoCooldown(d time.Duration) RegistryOption {
	return func(c *registryConfig) {
		if d >= 0 {
			c.videoCooldown = d
		}
	}
}

// NewDefaultRegistry registers a behavior for every executable node type.
// Note nodes are annotations and get none.
func NewDefaultRegistry(svc Services, opts ...RegistryOption) *Registry {
	cfg := registryConfig{videoCooldown: DefaultVideoCooldown}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := NewRegistry()

	r.Register(graph.TypeImageInput, local(requireField(graph.FieldImage), passthrough))
	r.Register(graph.TypeVideoInput, local(requireField(graph.FieldVideo), passthrough))
	r.Register(graph.TypeAudioInput, local(requireField(graph.FieldAudio), passthrough))
	r.Register(graph.TypePrompt, local(requireField(graph.FieldPrompt), passthrough))

	r.Register(graph.TypeGenerateImage, NewBehavior(requirePrompt,
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Images == nil {
				return nil, serviceErr(req, "generate_image", ErrServiceUnavailable)
			}
			d := req.Node.Data
			img, err := svc.Images.GenerateImage(ctx, ImageRequest{
				Prompt:          req.Prompt(),
				Images:          req.Inputs.Images,
				ReferenceImages: req.Inputs.ReferenceImages,
				Model:           d.String(graph.FieldModel),
				AspectRatio:     d.String(graph.FieldAspectRatio),
			})
			if err != nil {
				return nil, serviceErr(req, "generate_image", err)
			}
			return graph.Data{graph.FieldOutputImage: img}, nil
		}))

	r.Register(graph.TypeGenerateVideo, &cooledBehavior{
		wait: cfg.videoCooldown,
		funcBehavior: funcBehavior{
			validate: requirePrompt,
			run: func(ctx context.Context, req Request) (graph.Data, error) {
				if svc.Videos == nil {
					return nil, serviceErr(req, "generate_video", ErrServiceUnavailable)
				}
				d := req.Node.Data
				res, err := svc.Videos.GenerateVideo(ctx, VideoRequest{
					Prompt:          req.Prompt(),
					Image:           req.Inputs.Image(),
					ReferenceImages: req.Inputs.ReferenceImages,
					Model:           d.String(graph.FieldModel),
					Duration:        d.Float(graph.FieldDuration, 0),
					AspectRatio:     d.String(graph.FieldAspectRatio),
				})
				if err != nil {
					return nil, serviceErr(req, "generate_video", err)
				}
				return graph.Data{
					graph.FieldOutputVideo: res.Video,
					graph.FieldLastFrame:   res.LastFrame,
				}, nil
			},
		},
	})

	r.Register(graph.TypeTextGenerate, NewBehavior(requirePrompt,
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Text == nil {
				return nil, serviceErr(req, "generate_text", ErrServiceUnavailable)
			}
			text, err := svc.Text.GenerateText(ctx, TextRequest{
				Prompt:  req.Prompt(),
				Context: req.Inputs.Context,
				Model:   req.Node.Data.String(graph.FieldModel),
			})
			if err != nil {
				return nil, serviceErr(req, "generate_text", err)
			}
			return graph.Data{graph.FieldOutputText: text}, nil
		}))

	r.Register(graph.TypeDescribeImage, NewBehavior(requireImage,
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Describer == nil {
				return nil, serviceErr(req, "describe_image", ErrServiceUnavailable)
			}
			text, err := svc.Describer.DescribeImage(ctx, req.Inputs.Image(), req.Prompt())
			if err != nil {
				return nil, serviceErr(req, "describe_image", err)
			}
			return graph.Data{graph.FieldOutputText: text}, nil
		}))

	r.Register(graph.TypeTextToSpeech, NewBehavior(requireText,
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Speech == nil {
				return nil, serviceErr(req, "synthesize", ErrServiceUnavailable)
			}
			d := req.Node.Data
			audio, err := svc.Speech.Synthesize(ctx, SpeechRequest{
				Text:  req.Text(),
				Voice: d.String(graph.FieldVoice),
				Model: d.String(graph.FieldModel),
			})
			if err != nil {
				return nil, serviceErr(req, "synthesize", err)
			}
			return graph.Data{graph.FieldOutputAudio: audio}, nil
		}))

	r.Register(graph.TypeTranscribe, NewBehavior(
		func(req Request) error {
			if req.Inputs.Audio == "" && req.Inputs.Video == "" {
				return missing(req.Node.ID, "audio")
			}
			return nil
		},
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Transcriber == nil {
				return nil, serviceErr(req, "transcribe", ErrServiceUnavailable)
			}
			text, err := svc.Transcriber.Transcribe(ctx, firstNonEmpty(req.Inputs.Audio, req.Inputs.Video))
			if err != nil {
				return nil, serviceErr(req, "transcribe", err)
			}
			return graph.Data{graph.FieldOutputText: text}, nil
		}))

	r.Register(graph.TypeVoiceChange, NewBehavior(
		func(req Request) error {
			if req.Inputs.Audio == "" {
				return missing(req.Node.ID, "audio")
			}
			return requireField(graph.FieldVoice)(req)
		},
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Voice == nil {
				return nil, serviceErr(req, "convert_voice", ErrServiceUnavailable)
			}
			audio, err := svc.Voice.ConvertVoice(ctx, req.Inputs.Audio, req.Node.Data.String(graph.FieldVoice))
			if err != nil {
				return nil, serviceErr(req, "convert_voice", err)
			}
			return graph.Data{graph.FieldOutputAudio: audio}, nil
		}))

	r.Register(graph.TypeSyllableChunker, local(requireText,
		func(_ context.Context, req Request) (graph.Data, error) {
			per := req.Node.Data.Int(graph.FieldSyllablesPerChunk, DefaultSyllablesPerChunk)
			return graph.Data{graph.FieldOutputChunks: ChunkBySyllables(req.Text(), per)}, nil
		}))

	r.Register(graph.TypeCombineText, local(
		func(req Request) error {
			if req.Text() == "" && req.Inputs.Context == "" {
				return missing(req.Node.ID, "text")
			}
			return nil
		},
		func(_ context.Context, req Request) (graph.Data, error) {
			sep := DefaultSeparator
			if v, ok := req.Node.Data[graph.FieldSeparator].(string); ok {
				sep = v
			}
			var parts []string
			for _, p := range []string{req.Inputs.Context, req.Text()} {
				if p != "" {
					parts = append(parts, p)
				}
			}
			return graph.Data{graph.FieldOutputText: strings.Join(parts, sep)}, nil
		}))

	r.Register(graph.TypeCaptionBurn, NewBehavior(
		func(req Request) error {
			if err := requireVideo(req); err != nil {
				return err
			}
			return requireText(req)
		},
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Processor == nil {
				return nil, serviceErr(req, "burn_captions", ErrServiceUnavailable)
			}
			out, err := svc.Processor.BurnCaptions(ctx, req.Inputs.Video, req.Text(), req.Node.Data.String(graph.FieldCaptionStyle))
			if err != nil {
				return nil, serviceErr(req, "burn_captions", err)
			}
			return graph.Data{graph.FieldOutputVideo: out}, nil
		}))

	r.Register(graph.TypeStitchVideos, NewBehavior(
		func(req Request) error {
			if len(req.Inputs.Videos) == 0 {
				return missing(req.Node.ID, "videos")
			}
			return nil
		},
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Processor == nil {
				return nil, serviceErr(req, "stitch", ErrServiceUnavailable)
			}
			out, err := svc.Processor.Stitch(ctx, req.Inputs.Videos)
			if err != nil {
				return nil, serviceErr(req, "stitch", err)
			}
			return graph.Data{graph.FieldOutputVideo: out}, nil
		}))

	r.Register(graph.TypeTrimVideo, NewBehavior(requireVideo,
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Processor == nil {
				return nil, serviceErr(req, "trim", ErrServiceUnavailable)
			}
			d := req.Node.Data
			out, err := svc.Processor.Trim(ctx, req.Inputs.Video, d.Float(graph.FieldStart, 0), d.Float(graph.FieldEnd, 0))
			if err != nil {
				return nil, serviceErr(req, "trim", err)
			}
			return graph.Data{graph.FieldOutputVideo: out}, nil
		}))

	r.Register(graph.TypeExtractFrame, NewBehavior(requireVideo,
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Processor == nil {
				return nil, serviceErr(req, "extract_frame", ErrServiceUnavailable)
			}
			out, err := svc.Processor.ExtractFrame(ctx, req.Inputs.Video, req.Node.Data.Float(graph.FieldFramePosition, -1))
			if err != nil {
				return nil, serviceErr(req, "extract_frame", err)
			}
			return graph.Data{graph.FieldOutputImage: out}, nil
		}))

	r.Register(graph.TypeMergeAudio, NewBehavior(
		func(req Request) error {
			if err := requireVideo(req); err != nil {
				return err
			}
			if req.Inputs.Audio == "" {
				return missing(req.Node.ID, "audio")
			}
			return nil
		},
		func(ctx context.Context, req Request) (graph.Data, error) {
			if svc.Processor == nil {
				return nil, serviceErr(req, "merge_audio", ErrServiceUnavailable)
			}
			out, err := svc.Processor.MergeAudio(ctx, req.Inputs.Video, req.Inputs.Audio)
			if err != nil {
				return nil, serviceErr(req, "merge_audio", err)
			}
			return graph.Data{graph.FieldOutputVideo: out}, nil
		}))

	r.Register(graph.TypeOutput, NewBehavior(
		func(req Request) error {
			if req.Inputs.Empty() {
				return missing(req.Node.ID, "input")
			}
			return nil
		},
		func(ctx context.Context, req Request) (graph.Data, error) {
			out := graph.Data{
				graph.FieldImage: req.Inputs.Image(),
				graph.FieldVideo: req.Inputs.Video,
				graph.FieldAudio: req.Inputs.Audio,
				graph.FieldText:  req.Inputs.Text,
			}
			folder := req.Node.Data.String(graph.FieldOutputFolder)
			if folder == "" || svc.Outputs == nil {
				return out, nil
			}
			uri := firstNonEmpty(req.Inputs.Video, req.Inputs.Image(), req.Inputs.Audio)
			if uri == "" {
				return out, nil
			}
			if err := svc.Outputs.SaveOutput(ctx, folder, req.Node.ID, uri); err != nil {
				return nil, serviceErr(req, "save_output", err)
			}
			return out, nil
		}))

	return r
}

func local(validate ValidateFunc, run RunFunc) Behavior {
	return &localBehavior{funcBehavior{validate: validate, run: run}}
}

// passthrough is the run step of input nodes: their value already lives in
// their own data.
func passthrough(context.Context, Request) (graph.Data, error) {
	return graph.Data{}, nil
}

func requireField(field string) ValidateFunc {
	return func(req Request) error {
		if req.Node.Data.String(field) == "" {
			return missing(req.Node.ID, field)
		}
		return nil
	}
}

func requirePrompt(req Request) error {
	if req.Prompt() == "" {
		return missing(req.Node.ID, "prompt")
	}
	return nil
}

func requireText(req Request) error {
	if req.Text() == "" {
		return missing(req.Node.ID, "text")
	}
	return nil
}

func requireImage(req Request) error {
	if req.Inputs.Image() == "" {
		return missing(req.Node.ID, "image")
	}
	return nil
}

func requireVideo(req Request) error {
	if req.Inputs.Video == "" {
		return missing(req.Node.ID, "video")
	}
	return nil
}

func serviceErr(req Request, op string, err error) error {
	return &ServiceError{NodeID: req.Node.ID, Op: op, Err: err}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
