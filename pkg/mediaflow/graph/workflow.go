package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// WorkflowVersion is the current workflow file format version.
const WorkflowVersion = 1

// Workflow is the unit of persistence and of file export/import.
type Workflow struct {
	Version   int       `json:"version"`
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Nodes     []*Node   `json:"nodes"`
	Edges     []*Edge   `json:"edges"`
	EdgeStyle EdgeStyle `json:"edgeStyle"`
}

// ErrInvalidWorkflow indicates a workflow document failed validation.
var ErrInvalidWorkflow = errors.New("invalid workflow")

// Workflow returns the current graph as a workflow with the given identity.
func (s *Store) Workflow(id, name string) *Workflow {
	snap := s.Snapshot()
	nodes := snap.Nodes
	if nodes == nil {
		nodes = []*Node{}
	}
	edges := snap.Edges
	if edges == nil {
		edges = []*Edge{}
	}
	return &Workflow{
		Version:   WorkflowVersion,
		ID:        id,
		Name:      name,
		Nodes:     nodes,
		Edges:     edges,
		EdgeStyle: snap.EdgeStyle,
	}
}

// MarshalWorkflow encodes a workflow in the file format.
func MarshalWorkflow(wf *Workflow) ([]byte, error) {
	if wf.Version == 0 {
		cp := *wf
		cp.Version = WorkflowVersion
		wf = &cp
	}
	return json.MarshalIndent(wf, "", "  ")
}

// UnmarshalWorkflow validates data against the workflow schema and decodes it.
func UnmarshalWorkflow(data []byte) (*Workflow, error) {
	schema, err := workflowSchema()
	if err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse json: %v", ErrInvalidWorkflow, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflow, err)
	}

	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidWorkflow, err)
	}

	seen := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		if seen[n.ID] {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidWorkflow, n.ID)
		}
		seen[n.ID] = true
		if n.Data == nil {
			n.Data = NewData(nil)
		}
	}
	edgeIDs := make(map[string]bool, len(wf.Edges))
	for _, e := range wf.Edges {
		if edgeIDs[e.ID] {
			return nil, fmt.Errorf("%w: duplicate edge id %q", ErrInvalidWorkflow, e.ID)
		}
		edgeIDs[e.ID] = true
		if !seen[e.Source] || !seen[e.Target] {
			return nil, fmt.Errorf("%w: edge %s references unknown node", ErrInvalidWorkflow, e.ID)
		}
	}
	if wf.EdgeStyle == "" {
		wf.EdgeStyle = EdgeStyleBezier
	}
	return &wf, nil
}

const workflowSchemaURL = "https://mediaflow.dev/schemas/workflow.json"

// workflowSchemaJSON describes the workflow file format.
const workflowSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "name", "nodes", "edges"],
  "properties": {
    "version": { "const": 1 },
    "id": { "type": "string" },
    "name": { "type": "string" },
    "edgeStyle": {
      "type": "string",
      "enum": ["bezier", "smoothstep", "step", "straight"]
    },
    "nodes": { "type": "array", "items": { "$ref": "#/$defs/node" } },
    "edges": { "type": "array", "items": { "$ref": "#/$defs/edge" } }
  },
  "$defs": {
    "point": {
      "type": "object",
      "properties": {
        "x": { "type": "number" },
        "y": { "type": "number" }
      }
    },
    "node": {
      "type": "object",
      "required": ["id", "type", "data"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "type": {
          "type": "string",
          "enum": [
            "imageInput", "videoInput", "audioInput", "prompt",
            "generateImage", "generateVideo", "textGenerate", "describeImage",
            "textToSpeech", "transcribe", "voiceChange",
            "syllableChunker", "combineText",
            "captionBurn", "stitchVideos", "trimVideo", "extractFrame", "mergeAudio",
            "output", "note"
          ]
        },
        "position": { "$ref": "#/$defs/point" },
        "size": { "type": "object" },
        "data": {
          "type": "object",
          "properties": {
            "status": { "enum": ["idle", "loading", "complete", "error"] },
            "error": { "type": ["string", "null"] }
          }
        }
      }
    },
    "edge": {
      "type": "object",
      "required": ["id", "source", "target"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "source": { "type": "string", "minLength": 1 },
        "target": { "type": "string", "minLength": 1 },
        "sourceHandle": { "type": ["string", "null"] },
        "targetHandle": { "type": ["string", "null"] },
        "data": {
          "type": "object",
          "properties": { "hasPause": { "type": "boolean" } }
        }
      }
    }
  }
}`

var (
	compiledSchema     *jsonschema.Schema
	compiledSchemaOnce sync.Once
	compiledSchemaErr  error
)

// workflowSchema compiles the embedded schema on first use.
func workflowSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(workflowSchemaJSON))
		if err != nil {
			compiledSchemaErr = fmt.Errorf("unmarshal workflow schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(workflowSchemaURL, doc); err != nil {
			compiledSchemaErr = fmt.Errorf("add workflow schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = c.Compile(workflowSchemaURL)
	})
	return compiledSchema, compiledSchemaErr
}
