package speech

import "testing"

func TestRequestValid(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{name: "complete", req: Request{Input: "hello", Model: "tts-1", Voice: "alloy"}, want: true},
		{name: "empty input", req: Request{Input: "", Model: "tts-1", Voice: "alloy"}, want: false},
		{name: "blank model", req: Request{Input: "hello", Model: "  ", Voice: "alloy"}, want: false},
		{name: "missing voice", req: Request{Input: "hello", Model: "tts-1"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.req.Valid(); got != tc.want {
				t.Fatalf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRequestFormat(t *testing.T) {
	def := Request{}.Format()
	if def.ContentType != "audio/mpeg" || def.Filename() != "generated_speech.mp3" {
		t.Fatalf("default format = %+v (%s)", def, def.Filename())
	}

	aac := Request{ResponseFormat: "AAC"}.Format()
	if aac.ContentType != "audio/aac" || aac.Filename() != "generated_speech.aac" {
		t.Fatalf("aac format = %+v (%s)", aac, aac.Filename())
	}

	if got := (Request{ResponseFormat: "ogg"}).Format(); got.Name != DefaultFormat {
		t.Fatalf("unknown format should fall back to mp3, got %q", got.Name)
	}
}
