package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", "<!DOCTYPE html><html></html>", "<!DOCTYPE html><html></html>"},
		{"html fence", "```html\n<div>hi</div>\n```", "<div>hi</div>"},
		{"upper case tag", "```HTML\n<p>x</p>\n```", "<p>x</p>"},
		{"bare fence", "```\n<p>x</p>\n```", "<p>x</p>"},
		{"surrounding whitespace", "\n\n  ```html\n<p>x</p>\n```  \n", "<p>x</p>"},
		{"crlf", "```html\r\n<p>x</p>\r\n```", "<p>x</p>"},
		{"only leading fence", "```html\n<p>x</p>", "<p>x</p>"},
		{"only trailing fence", "<p>x</p>\n```", "<p>x</p>"},
		{"nested fences", "```html\n```html\n<p>x</p>\n```\n```", "<p>x</p>"},
		{"empty", "", ""},
		{"fence only", "```", ""},
		{"inner backticks kept", "<pre>```js\ncode\n```</pre>", "<pre>```js\ncode\n```</pre>"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Finalize(tc.in))
		})
	}
}

func TestFinalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"```",
		"``````",
		"```html\n<div>hi</div>\n```",
		"```html\n```css\nbody{}\n```\n```",
		"<!DOCTYPE html><html></html>",
		"```js\nconsole.log(1)",
		"text ``` in the middle ```",
		"\t```Html  \n<h1>🚀</h1>\n```\n",
	}

	for _, in := range inputs {
		once := Finalize(in)
		assert.Equal(t, once, Finalize(once), "input %q", in)
	}
}
