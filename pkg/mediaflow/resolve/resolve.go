// Package resolve computes a node's effective inputs from its upstream
// neighbours.
//
// The resolver always returns live upstream values. Callers decide whether
// to fall back to the node's own stored copy with Effective and
// EffectiveList, which implement the single "connected, else stored" policy.
package resolve

import (
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

// Graph is the read access the resolver needs. *graph.Store satisfies it.
type Graph interface {
	Node(id string) (*graph.Node, bool)
	Incoming(id string) []*graph.Edge
}

// Inputs holds the values resolved for one node.
//
// Images and ReferenceImages accumulate in edge order. Text, Context, Video
// and Audio are single-valued: when several edges feed the same handle, the
// last one wins. Videos collects every video edge in order for consumers
// that take many clips.
type Inputs struct {
	Images          []string
	ReferenceImages []string
	Text            string
	Context         string
	Video           string
	Videos          []string
	Audio           string
}

// Empty reports whether nothing was resolved.
func (in Inputs) Empty() bool {
	return len(in.Images) == 0 && len(in.ReferenceImages) == 0 &&
		in.Text == "" && in.Context == "" && in.Video == "" &&
		len(in.Videos) == 0 && in.Audio == ""
}

// Image returns the first resolved image, or "".
func (in Inputs) Image() string {
	if len(in.Images) == 0 {
		return ""
	}
	return in.Images[0]
}

// Resolver resolves node inputs against a graph.
type Resolver struct {
	g Graph
}

// New creates a resolver reading from g.
func New(g Graph) *Resolver {
	return &Resolver{g: g}
}

// Resolve computes the inputs of nodeID from its incoming edges. When
// handles are given, only edges arriving on those handles are considered.
// An unknown node resolves to empty Inputs.
func (r *Resolver) Resolve(nodeID string, handles ...graph.Handle) Inputs {
	return r.resolve(nodeID, handles, map[string]bool{})
}

func (r *Resolver) resolve(nodeID string, handles []graph.Handle, visiting map[string]bool) Inputs {
	var in Inputs

	consumer, ok := r.g.Node(nodeID)
	if !ok || visiting[nodeID] {
		return in
	}
	visiting[nodeID] = true
	defer delete(visiting, nodeID)

	for _, e := range r.g.Incoming(nodeID) {
		src, ok := r.g.Node(e.Source)
		if !ok {
			continue
		}
		handle := TargetHandle(e, src)
		if !wanted(handle, handles) {
			continue
		}

		switch handle {
		case graph.HandleImage:
			if v := imageOf(src, e.SourcePort()); v != "" {
				in.Images = append(in.Images, v)
			}
		case graph.HandleReference:
			in.ReferenceImages = append(in.ReferenceImages, r.referencesOf(src, e, visiting)...)
		case graph.HandleText:
			if v := textOf(src, consumer); v != "" {
				in.Text = v
			}
		case graph.HandleContext:
			if v := textOf(src, consumer); v != "" {
				in.Context = v
			}
		case graph.HandleVideo:
			if v := videoOf(src); v != "" {
				in.Video = v
				in.Videos = append(in.Videos, v)
			}
		case graph.HandleAudio:
			if v := audioOf(src); v != "" {
				in.Audio = v
			}
		}
	}
	return in
}

// referencesOf returns the reference images an edge contributes. A video
// generation node whose outgoing handle is "reference" passes its own
// references through, so they chain across generation hops without being
// stored at each one.
func (r *Resolver) referencesOf(src *graph.Node, e *graph.Edge, visiting map[string]bool) []string {
	if src.Type == graph.TypeGenerateVideo && e.SourcePort() == graph.HandleReference {
		upstream := r.resolve(src.ID, []graph.Handle{graph.HandleReference}, visiting)
		return EffectiveList(upstream.ReferenceImages, src.Data.Strings(graph.FieldReferenceImages))
	}
	if v := imageOf(src, e.SourcePort()); v != "" {
		return []string{v}
	}
	return nil
}

// TargetHandle returns the handle an edge delivers into. An edge without a
// target handle uses its source handle, and failing that the primary output
// of the source node's type.
func TargetHandle(e *graph.Edge, src *graph.Node) graph.Handle {
	if h := e.TargetPort(); h != "" {
		return h
	}
	if h := e.SourcePort(); h != "" {
		return h
	}
	return PrimaryOutput(src.Type)
}

// PrimaryOutput returns the handle a node type produces by default.
func PrimaryOutput(t graph.NodeType) graph.Handle {
	switch t {
	case graph.TypeImageInput, graph.TypeGenerateImage, graph.TypeExtractFrame:
		return graph.HandleImage
	case graph.TypeVideoInput, graph.TypeGenerateVideo, graph.TypeCaptionBurn,
		graph.TypeStitchVideos, graph.TypeTrimVideo, graph.TypeMergeAudio:
		return graph.HandleVideo
	case graph.TypeAudioInput, graph.TypeTextToSpeech, graph.TypeVoiceChange:
		return graph.HandleAudio
	default:
		return graph.HandleText
	}
}

func wanted(h graph.Handle, handles []graph.Handle) bool {
	if len(handles) == 0 {
		return true
	}
	for _, want := range handles {
		if h == want {
			return true
		}
	}
	return false
}

func imageOf(src *graph.Node, sourceHandle graph.Handle) string {
	d := src.Data
	switch src.Type {
	case graph.TypeImageInput:
		return d.String(graph.FieldImage)
	case graph.TypeGenerateImage, graph.TypeExtractFrame:
		return d.String(graph.FieldOutputImage)
	case graph.TypeGenerateVideo:
		// the image a video node ran with, passed straight through
		if sourceHandle == graph.HandleImage {
			return d.String(graph.FieldInputImage)
		}
		return d.String(graph.FieldLastFrame)
	case graph.TypeOutput:
		return d.String(graph.FieldImage)
	}
	return d.String(graph.FieldOutputImage)
}

func textOf(src, consumer *graph.Node) string {
	d := src.Data
	switch src.Type {
	case graph.TypePrompt:
		return d.String(graph.FieldPrompt)
	case graph.TypeSyllableChunker:
		return chunkAt(d.Strings(graph.FieldOutputChunks), consumer.Data.Int(graph.FieldChunkIndex, 1))
	case graph.TypeNote:
		return d.String(graph.FieldContent)
	case graph.TypeOutput:
		return d.String(graph.FieldText)
	}
	if v := d.String(graph.FieldOutputText); v != "" {
		return v
	}
	return d.String(graph.FieldText)
}

// chunkAt returns the 1-based index into chunks, or "" when out of range.
func chunkAt(chunks []string, index int) string {
	if index < 1 || index > len(chunks) {
		return ""
	}
	return chunks[index-1]
}

func videoOf(src *graph.Node) string {
	switch src.Type {
	case graph.TypeVideoInput, graph.TypeOutput:
		return src.Data.String(graph.FieldVideo)
	}
	return src.Data.String(graph.FieldOutputVideo)
}

func audioOf(src *graph.Node) string {
	switch src.Type {
	case graph.TypeAudioInput, graph.TypeOutput:
		return src.Data.String(graph.FieldAudio)
	}
	return src.Data.String(graph.FieldOutputAudio)
}

// Effective returns connected unless it is the zero value, in which case it
// returns stored.
func Effective[T comparable](connected, stored T) T {
	var zero T
	if connected != zero {
		return connected
	}
	return stored
}

// EffectiveList returns connected unless it is empty, in which case it
// returns stored.
func EffectiveList[T any](connected, stored []T) []T {
	if len(connected) > 0 {
		return connected
	}
	return stored
}
