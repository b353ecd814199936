// Package graph holds the node/edge data model and the Graph Store that owns
// the canonical collections for a workflow.
package graph

// NodeType identifies the variant of a node. It selects both the shape of the
// node's Data and the behavior used to execute it.
type NodeType string

// Input nodes hold user-provided media or text.
const (
	TypeImageInput NodeType = "imageInput"
	TypeVideoInput NodeType = "videoInput"
	TypeAudioInput NodeType = "audioInput"
	TypePrompt     NodeType = "prompt"
)

// Generator nodes call an external AI service.
const (
	TypeGenerateImage NodeType = "generateImage"
	TypeGenerateVideo NodeType = "generateVideo"
	TypeTextGenerate  NodeType = "textGenerate"
	TypeDescribeImage NodeType = "describeImage"
	TypeTextToSpeech  NodeType = "textToSpeech"
	TypeTranscribe    NodeType = "transcribe"
	TypeVoiceChange   NodeType = "voiceChange"
)

// Text transform nodes.
const (
	TypeSyllableChunker NodeType = "syllableChunker"
	TypeCombineText     NodeType = "combineText"
)

// Video processing nodes.
const (
	TypeCaptionBurn  NodeType = "captionBurn"
	TypeStitchVideos NodeType = "stitchVideos"
	TypeTrimVideo    NodeType = "trimVideo"
	TypeExtractFrame NodeType = "extractFrame"
	TypeMergeAudio   NodeType = "mergeAudio"
)

// Sink and annotation nodes.
const (
	TypeOutput NodeType = "output"
	TypeNote   NodeType = "note"
)

// AllTypes lists every known node type.
var AllTypes = []NodeType{
	TypeImageInput, TypeVideoInput, TypeAudioInput, TypePrompt,
	TypeGenerateImage, TypeGenerateVideo, TypeTextGenerate, TypeDescribeImage,
	TypeTextToSpeech, TypeTranscribe, TypeVoiceChange,
	TypeSyllableChunker, TypeCombineText,
	TypeCaptionBurn, TypeStitchVideos, TypeTrimVideo, TypeExtractFrame, TypeMergeAudio,
	TypeOutput, TypeNote,
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the execution status carried by every node.
type Status string

// Node statuses. A node moves idle -> loading -> complete|error; a clear or a
// fresh run returns it to idle.
const (
	StatusIdle     Status = "idle"
	StatusLoading  Status = "loading"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Handle names a port on a node.
type Handle string

// Known handles.
const (
	HandleImage     Handle = "image"
	HandleReference Handle = "reference"
	HandleText      Handle = "text"
	HandleContext   Handle = "context"
	HandleVideo     Handle = "video"
	HandleAudio     Handle = "audio"
)

// EdgeStyle is the rendering style of edges. It is part of the undoable state.
type EdgeStyle string

// Edge styles.
const (
	EdgeStyleBezier     EdgeStyle = "bezier"
	EdgeStyleSmoothStep EdgeStyle = "smoothstep"
	EdgeStyleStep       EdgeStyle = "step"
	EdgeStyleStraight   EdgeStyle = "straight"
)

// Position is a node's location on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a node's rendered size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is a typed unit of work in the graph.
//
// Nodes are immutable values once published by the Store: every change
// produces a new *Node so snapshots taken earlier keep their contents.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Size     Size     `json:"size"`
	Data     Data     `json:"data"`
}

// Status returns the node's execution status.
func (n *Node) Status() Status {
	return n.Data.Status()
}

// with returns a shallow copy of n carrying data d.
func (n *Node) with(d Data) *Node {
	cp := *n
	cp.Data = d
	return &cp
}

// EdgeData is the per-edge payload.
type EdgeData struct {
	HasPause bool `json:"hasPause"`
}

// Edge is a directed, handle-qualified connection between two nodes.
type Edge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	SourceHandle *string  `json:"sourceHandle"`
	TargetHandle *string  `json:"targetHandle"`
	Data         EdgeData `json:"data"`
}

// SourcePort returns the source handle, or "" when unset.
func (e *Edge) SourcePort() Handle {
	if e.SourceHandle == nil {
		return ""
	}
	return Handle(*e.SourceHandle)
}

// TargetPort returns the target handle, or "" when unset.
func (e *Edge) TargetPort() Handle {
	if e.TargetHandle == nil {
		return ""
	}
	return Handle(*e.TargetHandle)
}

// EdgeSpec describes an edge to connect.
type EdgeSpec struct {
	Source       string
	Target       string
	SourceHandle Handle
	TargetHandle Handle
	HasPause     bool
}

// Snapshot is an immutable view of the undoable graph state.
type Snapshot struct {
	Nodes     []*Node
	Edges     []*Edge
	EdgeStyle EdgeStyle
}

// Same reports whether a and b share the same node and edge collections and
// edge style. Collections are compared by identity, never by content; the
// Store never mutates a published slice, so identity implies equality.
func Same(a, b Snapshot) bool {
	return sameSlice(a.Nodes, b.Nodes) && sameSlice(a.Edges, b.Edges) && a.EdgeStyle == b.EdgeStyle
}

func sameSlice[T any](a, b []*T) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
