package graph

// Field keys shared by every node variant.
const (
	FieldStatus = "status"
	FieldError  = "error"
)

// Field keys for user-provided values and node configuration.
const (
	FieldImage             = "image"
	FieldVideo             = "video"
	FieldAudio             = "audio"
	FieldText              = "text"
	FieldPrompt            = "prompt"
	FieldModel             = "model"
	FieldDuration          = "duration"
	FieldAspectRatio       = "aspectRatio"
	FieldVoice             = "voice"
	FieldChunkIndex        = "chunkIndex"
	FieldSyllablesPerChunk = "syllablesPerChunk"
	FieldSeparator         = "separator"
	FieldStart             = "start"
	FieldEnd               = "end"
	FieldFramePosition     = "framePosition"
	FieldCaptionStyle      = "captionStyle"
	FieldIterations        = "iterations"
	FieldOutputFolder      = "outputFolder"
	FieldContent           = "content"
)

// Field keys holding the inputs a node last ran with.
const (
	FieldInputImage      = "inputImage"
	FieldInputImages     = "inputImages"
	FieldReferenceImages = "referenceImages"
	FieldInputPrompt     = "inputPrompt"
	FieldInputText       = "inputText"
	FieldInputContext    = "inputContext"
	FieldInputVideo      = "inputVideo"
	FieldInputVideos     = "inputVideos"
	FieldInputAudio      = "inputAudio"
)

// Field keys holding produced outputs.
const (
	FieldOutputImage  = "outputImage"
	FieldOutputVideo  = "outputVideo"
	FieldOutputAudio  = "outputAudio"
	FieldOutputText   = "outputText"
	FieldOutputChunks = "outputChunks"
	FieldLastFrame    = "lastFrame"
)

// OutputFields lists every field cleared when a node's results are reset.
var OutputFields = []string{
	FieldOutputImage, FieldOutputVideo, FieldOutputAudio,
	FieldOutputText, FieldOutputChunks, FieldLastFrame,
}

// ClearedOutputs returns the partial update that resets a node to idle and
// drops every produced output.
func ClearedOutputs() Data {
	d := Data{FieldStatus: string(StatusIdle), FieldError: nil}
	for _, f := range OutputFields {
		d[f] = nil
	}
	return d
}

// Data is the variant-specific payload of a node, keyed by field name.
//
// All accessor methods return a default value if the key is missing or the
// value cannot be converted to the requested type. Data is treated as
// immutable: Merge returns a new map and leaves the receiver untouched.
type Data map[string]any

// NewData returns Data initialised with idle status and no error, merged
// with the given fields.
func NewData(fields map[string]any) Data {
	d := Data{FieldStatus: string(StatusIdle), FieldError: nil}
	for k, v := range fields {
		d[k] = v
	}
	return d
}

// Merge returns a copy of d with partial applied on top.
func (d Data) Merge(partial Data) Data {
	out := make(Data, len(d)+len(partial))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of d.
func (d Data) Clone() Data {
	return d.Merge(nil)
}

// Status returns the execution status, defaulting to idle.
func (d Data) Status() Status {
	switch v := d[FieldStatus].(type) {
	case Status:
		return v
	case string:
		if v != "" {
			return Status(v)
		}
	}
	return StatusIdle
}

// Error returns the recorded error message, or "".
func (d Data) Error() string {
	return d.String(FieldError)
}

// String returns the string value for key, or "" if missing or not a string.
func (d Data) String(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

// Strings returns the string slice for key.
//
// Accepts []string directly or []any whose elements are all strings (the
// shape produced by JSON decoding). Returns nil otherwise.
func (d Data) Strings(key string) []string {
	switch val := d[key].(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			result = append(result, s)
		}
		return result
	}
	return nil
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
//
// Accepts:
//   - int: used directly
//   - int64: converted to int
//   - float64: converted to int (only if no fractional part)
func (d Data) Int(key string, defaultVal int) int {
	switch val := d[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Float returns the float64 value for key, or defaultVal if missing or not convertible.
func (d Data) Float(key string, defaultVal float64) float64 {
	switch val := d[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (d Data) Bool(key string, defaultVal bool) bool {
	if b, ok := d[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Has returns true if the key is present with a non-nil value.
func (d Data) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}
