package security

import (
	"strings"
	"testing"
)

func TestTextSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "Phase II oncology study",
			want:  "Phase II oncology study",
		},
		{
			name:  "アンパサンドはエスケープされない",
			input: "Safety & Efficacy",
			want:  "Safety & Efficacy",
		},
		{
			name:  "書式タグは除去されテキストは残る",
			input: "<b>Bold</b> trial",
			want:  "Bold trial",
		},
		{
			name:  "空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// scriptタグとイベント属性は内容ごと除去される。
func TestTextSanitizer_RemovesScript(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.Sanitize(`Trial<script>alert("xss")</script><img src=x onerror=alert(1)>`)
	if strings.Contains(got, "script") || strings.Contains(got, "alert") || strings.Contains(got, "onerror") {
		t.Errorf("script content should be removed, got %q", got)
	}
	if !strings.HasPrefix(got, "Trial") {
		t.Errorf("text should be preserved, got %q", got)
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		"<p>Dose &amp; <em>schedule</em></p>",
		"&lt;script&gt;alert(1)&lt;/script&gt; <b>x</b>",
		"&amp;lt;b&amp;gt;nested&amp;lt;/b&amp;gt; <i>y</i>",
		"a < b and c > d <br>",
	}

	for _, input := range inputs {
		once := sanitizer.Sanitize(input)
		twice := sanitizer.Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize(%q) is not idempotent: %q != %q", input, once, twice)
		}
	}
}

// エンティティで書かれたタグはアンエスケープ後に復元されず、除去される。
func TestTextSanitizer_EntityEncodedMarkupIsRemoved(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
	}{
		{name: "エンティティのscriptと実タグの混在", input: "&lt;script&gt;alert(1)&lt;/script&gt; <b>x</b>"},
		{name: "二重エスケープのタグ", input: "&amp;lt;img src=x onerror=alert(1)&amp;gt; <i>y</i>"},
		{name: "数値文字参照のタグ", input: "&#60;script&#62;alert(1)&#60;/script&#62;<br>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			lower := strings.ToLower(got)
			if strings.Contains(lower, "<script") || strings.Contains(lower, "<img") || strings.Contains(lower, "<b>") {
				t.Errorf("Sanitize(%q) = %q, markup should be removed", tt.input, got)
			}
		})
	}
}
