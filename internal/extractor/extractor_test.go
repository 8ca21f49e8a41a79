package extractor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go-redflag-detector/internal/logger"
)

var (
	pngHeader  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00}
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00")
)

func init() {
	logger.SetOutput(io.Discard)
}

type stubEngine struct {
	text  string
	err   error
	panic bool
	block bool
	calls int
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	s.calls++
	if s.panic {
		panic("tesseract exploded")
	}
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

type stubSource struct {
	data []byte
	err  error
	urls []string
}

func (s *stubSource) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	s.urls = append(s.urls, imageURL)
	return s.data, s.err
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		engine    *stubEngine
		source    *stubSource
		img       Image
		want      string
		wantCalls int
	}{
		{
			name:      "png recognized",
			engine:    &stubEngine{text: "you never text back"},
			img:       Image{Data: pngHeader},
			want:      "you never text back",
			wantCalls: 1,
		},
		{
			name:      "jpeg recognized",
			engine:    &stubEngine{text: "k"},
			img:       Image{Data: jpegHeader},
			want:      "k",
			wantCalls: 1,
		},
		{
			name:      "surrounding whitespace trimmed",
			engine:    &stubEngine{text: "\n  you up?\t\n"},
			img:       Image{Data: pngHeader},
			want:      "you up?",
			wantCalls: 1,
		},
		{
			name:      "whitespace only counts as no text",
			engine:    &stubEngine{text: " \n\t "},
			img:       Image{Data: pngHeader},
			want:      "",
			wantCalls: 1,
		},
		{
			name:      "engine error becomes empty",
			engine:    &stubEngine{err: errors.New("corrupt image")},
			img:       Image{Data: pngHeader},
			want:      "",
			wantCalls: 1,
		},
		{
			name:      "engine panic becomes empty",
			engine:    &stubEngine{panic: true},
			img:       Image{Data: pngHeader},
			want:      "",
			wantCalls: 1,
		},
		{
			name:      "unsupported type skipped",
			engine:    &stubEngine{text: "never"},
			img:       Image{Data: gifHeader},
			want:      "",
			wantCalls: 0,
		},
		{
			name:      "garbage bytes skipped",
			engine:    &stubEngine{text: "never"},
			img:       Image{Data: []byte("definitely not an image")},
			want:      "",
			wantCalls: 0,
		},
		{
			name:      "no image",
			engine:    &stubEngine{text: "never"},
			img:       Image{},
			want:      "",
			wantCalls: 0,
		},
		{
			name:      "url fetched through source",
			engine:    &stubEngine{text: "from url"},
			source:    &stubSource{data: jpegHeader},
			img:       Image{URL: "https://cdn.example.com/chat.jpg"},
			want:      "from url",
			wantCalls: 1,
		},
		{
			name:      "url fetch failure becomes empty",
			engine:    &stubEngine{text: "never"},
			source:    &stubSource{err: errors.New("404")},
			img:       Image{URL: "https://cdn.example.com/missing.jpg"},
			want:      "",
			wantCalls: 0,
		},
		{
			name:      "url without source",
			engine:    &stubEngine{text: "never"},
			img:       Image{URL: "https://cdn.example.com/chat.jpg"},
			want:      "",
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var x *Extractor
			if tt.source != nil {
				x = New(tt.engine, tt.source, time.Second)
			} else {
				x = New(tt.engine, nil, time.Second)
			}

			got := x.Extract(context.Background(), tt.img)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
			if tt.engine.calls != tt.wantCalls {
				t.Errorf("Expected %d engine calls, got %d", tt.wantCalls, tt.engine.calls)
			}
		})
	}
}

func TestExtract_InlineDataWinsOverURL(t *testing.T) {
	source := &stubSource{data: jpegHeader}
	x := New(&stubEngine{text: "inline"}, source, time.Second)

	got := x.Extract(context.Background(), Image{Data: pngHeader, URL: "https://cdn.example.com/chat.jpg"})
	if got != "inline" {
		t.Errorf("Expected inline text, got %q", got)
	}
	if len(source.urls) != 0 {
		t.Errorf("Expected no fetch, got %v", source.urls)
	}
}

func TestExtract_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := &stubEngine{block: true}
	x := New(engine, nil, time.Second)

	done := make(chan string, 1)
	go func() { done <- x.Extract(ctx, Image{Data: pngHeader}) }()
	cancel()

	select {
	case got := <-done:
		if got != "" {
			t.Errorf("Expected empty text after cancel, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Extract did not return after cancellation")
	}
}

func TestNew_NilEngine(t *testing.T) {
	x := New(nil, nil, 0)
	if got := x.Extract(context.Background(), Image{Data: pngHeader}); got != "" {
		t.Errorf("Expected empty text from noop engine, got %q", got)
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		data []byte
		want string
		ok   bool
	}{
		{pngHeader, "image/png", true},
		{jpegHeader, "image/jpeg", true},
		{gifHeader, "image/gif", false},
	}
	for _, tt := range tests {
		got, ok := DetectType(tt.data)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DetectType() = %s, %v; want %s, %v", got, ok, tt.want, tt.ok)
		}
	}
}
