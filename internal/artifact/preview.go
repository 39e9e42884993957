package artifact

import (
	"errors"
	"fmt"
	"net/http"

	"appbuilder-backend/internal/model"
	"appbuilder-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// previewCSP 让文档运行在不透明源里：可以执行脚本和提交表单，
// 但拿不到宿主页面的 cookie、storage 和同源权限
const previewCSP = "sandbox allow-scripts allow-forms"

// NewPreviewRouter 本地预览服务：
//
//	GET /                 最近一次的文档
//	GET /preview/:id      指定会话的文档
//	GET /export/:id       以附件形式下载 index.html
//	GET /artifacts        已有文档列表
func NewPreviewRouter(store *Store) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", func(c *gin.Context) {
		a, err := store.Latest()
		if err != nil {
			notFound(c, err)
			return
		}
		ServePreview(c, a)
	})

	router.GET("/preview/:id", func(c *gin.Context) {
		a, err := store.Get(c.Param("id"))
		if err != nil {
			notFound(c, err)
			return
		}
		ServePreview(c, a)
	})

	router.GET("/export/:id", func(c *gin.Context) {
		a, err := store.Get(c.Param("id"))
		if err != nil {
			notFound(c, err)
			return
		}
		ServeExport(c, a)
	})

	router.GET("/artifacts", func(c *gin.Context) {
		type entry struct {
			SessionID string `json:"session_id"`
			Title     string `json:"title"`
			Bytes     int    `json:"bytes"`
			Complete  bool   `json:"complete"`
		}
		list := store.List()
		entries := make([]entry, 0, len(list))
		for _, a := range list {
			report, err := Inspect(a)
			if err != nil {
				logger.Warnf("failed to inspect artifact %s: %v", a.SessionID, err)
			}
			entries = append(entries, entry{
				SessionID: a.SessionID,
				Title:     report.Label(),
				Bytes:     report.Bytes,
				Complete:  report.Complete,
			})
		}
		c.JSON(http.StatusOK, entries)
	})

	return router
}

// ServePreview 在沙箱 CSP 下返回文档
func ServePreview(c *gin.Context, a Artifact) {
	c.Header("Content-Security-Policy", previewCSP)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, ContentType, []byte(a.Content))
}

// ServeExport 以 index.html 附件返回文档
func ServeExport(c *gin.Context, a Artifact) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, FileName))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, ContentType, []byte(a.Content))
}

func notFound(c *gin.Context, err error) {
	if errors.Is(err, ErrArtifactNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Artifact not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, model.ErrorResponse{
		Error:   "Internal Server Error",
		Details: err.Error(),
	})
}
