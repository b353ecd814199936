package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakeServices implements every collaborator with deterministic results.
// Errors can be injected per operation, and block makes an operation wait
// until its context is cancelled.
type fakeServices struct {
	mu      sync.Mutex
	calls   []string
	errs    map[string]error
	block   map[string]bool
	started chan string
	videoN  int
	saved   []string
}

func newFakeServices() *fakeServices {
	return &fakeServices{
		errs:    map[string]error{},
		block:   map[string]bool{},
		started: make(chan string, 64),
	}
}

func (f *fakeServices) services() Services {
	return Services{
		Images:      f,
		Videos:      f,
		Text:        f,
		Describer:   f,
		Speech:      f,
		Transcriber: f,
		Voice:       f,
		Processor:   f,
		Outputs:     f,
	}
}

func (f *fakeServices) call(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	err := f.errs[op]
	block := f.block[op]
	f.mu.Unlock()

	f.started <- op
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeServices) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeServices) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if err := f.call(ctx, "generate_image"); err != nil {
		return "", err
	}
	return "img:" + req.Prompt, nil
}

func (f *fakeServices) GenerateVideo(ctx context.Context, req VideoRequest) (VideoResult, error) {
	if err := f.call(ctx, "generate_video"); err != nil {
		return VideoResult{}, err
	}
	f.mu.Lock()
	f.videoN++
	n := f.videoN
	f.mu.Unlock()
	return VideoResult{
		Video:     fmt.Sprintf("vid:%s:%d", req.Prompt, n),
		LastFrame: fmt.Sprintf("frame:%s:%d", req.Prompt, n),
	}, nil
}

func (f *fakeServices) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if err := f.call(ctx, "generate_text"); err != nil {
		return "", err
	}
	if req.Context != "" {
		return "text:" + req.Prompt + "|" + req.Context, nil
	}
	return "text:" + req.Prompt, nil
}

func (f *fakeServices) DescribeImage(ctx context.Context, image, _ string) (string, error) {
	if err := f.call(ctx, "describe_image"); err != nil {
		return "", err
	}
	return "desc:" + image, nil
}

func (f *fakeServices) Synthesize(ctx context.Context, req SpeechRequest) (string, error) {
	if err := f.call(ctx, "synthesize"); err != nil {
		return "", err
	}
	return "aud:" + req.Text, nil
}

func (f *fakeServices) Transcribe(ctx context.Context, media string) (string, error) {
	if err := f.call(ctx, "transcribe"); err != nil {
		return "", err
	}
	return "said:" + media, nil
}

func (f *fakeServices) ConvertVoice(ctx context.Context, audio, voice string) (string, error) {
	if err := f.call(ctx, "convert_voice"); err != nil {
		return "", err
	}
	return audio + "@" + voice, nil
}

func (f *fakeServices) Stitch(ctx context.Context, videos []string) (string, error) {
	if err := f.call(ctx, "stitch"); err != nil {
		return "", err
	}
	return fmt.Sprintf("stitched%v", videos), nil
}

func (f *fakeServices) Trim(ctx context.Context, video string, start, end float64) (string, error) {
	if err := f.call(ctx, "trim"); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s[%g:%g]", video, start, end), nil
}

func (f *fakeServices) BurnCaptions(ctx context.Context, video, text, _ string) (string, error) {
	if err := f.call(ctx, "burn_captions"); err != nil {
		return "", err
	}
	return video + "+cc(" + text + ")", nil
}

func (f *fakeServices) ExtractFrame(ctx context.Context, video string, position float64) (string, error) {
	if err := f.call(ctx, "extract_frame"); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%g", video, position), nil
}

func (f *fakeServices) MergeAudio(ctx context.Context, video, audio string) (string, error) {
	if err := f.call(ctx, "merge_audio"); err != nil {
		return "", err
	}
	return video + "+" + audio, nil
}

func (f *fakeServices) SaveOutput(ctx context.Context, folder, name, uri string) error {
	if err := f.call(ctx, "save_output"); err != nil {
		return err
	}
	f.mu.Lock()
	f.saved = append(f.saved, folder+"/"+name+"="+uri)
	f.mu.Unlock()
	return nil
}

var errBoom = errors.New("boom")
