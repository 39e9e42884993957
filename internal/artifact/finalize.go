package artifact

import (
	"regexp"
	"strings"
)

var (
	// ```html / ```HTML / ``` 开头的围栏行，语言标签可选
	leadingFence  = regexp.MustCompile("(?i)^```[a-z0-9_+-]*[ \t]*\r?\n?")
	trailingFence = regexp.MustCompile("\r?\n?[ \t]*```$")
)

// Finalize 去掉模型偶尔加上的 markdown 围栏。纯函数，对任意输入都有定义，且幂等
func Finalize(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		next := strings.TrimSpace(stripFences(s))
		if next == s {
			return s
		}
		s = next
	}
}

func stripFences(s string) string {
	s = leadingFence.ReplaceAllString(s, "")
	return trailingFence.ReplaceAllString(s, "")
}
