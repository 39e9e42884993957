package artifact

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const untitled = "Untitled"

// Report 文档的粗略检查结果
type Report struct {
	Title   string `json:"title"`
	Doctype bool   `json:"doctype"`
	// Complete 同时出现 <html 与 </html>，说明流没有在文档中途结束
	Complete bool `json:"complete"`
	Scripts  int  `json:"scripts"`
	Styles   int  `json:"styles"`
	Bytes    int  `json:"bytes"`
}

// Label 用于导出/预览时的展示名
func (r Report) Label() string {
	if r.Title == "" {
		return untitled
	}
	return r.Title
}

func (r Report) String() string {
	return fmt.Sprintf("%s (%d bytes, %d scripts, %d styles, complete=%t)",
		r.Label(), r.Bytes, r.Scripts, r.Styles, r.Complete)
}

// Inspect 解析文档提取标题和结构信息。
// HTML 解析器会补全缺失的 html/head/body，所以完整性按原始文本判断
func Inspect(a Artifact) (Report, error) {
	report := Report{Bytes: a.Size()}

	lower := strings.ToLower(a.Content)
	report.Doctype = strings.HasPrefix(lower, "<!doctype html")
	report.Complete = strings.Contains(lower, "<html") && strings.Contains(lower, "</html>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(a.Content))
	if err != nil {
		return report, fmt.Errorf("failed to parse artifact: %w", err)
	}

	report.Title = strings.TrimSpace(doc.Find("title").First().Text())
	report.Scripts = doc.Find("script").Length()
	report.Styles = doc.Find("style").Length() + doc.Find(`link[rel="stylesheet"]`).Length()

	return report, nil
}
