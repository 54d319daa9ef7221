package speech

import "strings"

// Request is the body of POST /generate-speech. It is never persisted.
type Request struct {
	Input          string `json:"input" binding:"required"`
	Model          string `json:"model" binding:"required"`
	Voice          string `json:"voice" binding:"required"`
	ResponseFormat string `json:"response_format" binding:"omitempty,oneof=mp3 opus aac flac wav pcm"`
}

// Format describes how an audio payload is labelled for the caller.
type Format struct {
	Name        string
	ContentType string
}

var formats = map[string]Format{
	"mp3":  {Name: "mp3", ContentType: "audio/mpeg"},
	"opus": {Name: "opus", ContentType: "audio/ogg"},
	"aac":  {Name: "aac", ContentType: "audio/aac"},
	"flac": {Name: "flac", ContentType: "audio/flac"},
	"wav":  {Name: "wav", ContentType: "audio/wav"},
	"pcm":  {Name: "pcm", ContentType: "audio/pcm"},
}

const DefaultFormat = "mp3"

// Valid reports whether every required field carries non-blank text.
func (r Request) Valid() bool {
	return strings.TrimSpace(r.Input) != "" &&
		strings.TrimSpace(r.Model) != "" &&
		strings.TrimSpace(r.Voice) != ""
}

// Format resolves the requested response format, defaulting to mp3.
func (r Request) Format() Format {
	if f, ok := formats[strings.ToLower(r.ResponseFormat)]; ok {
		return f
	}
	return formats[DefaultFormat]
}

// Filename is the suggested download name for the generated audio.
func (f Format) Filename() string {
	return "generated_speech." + f.Name
}
