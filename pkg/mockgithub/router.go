package mockgithub

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// NewRouter returns a gin engine serving the contents and raw download
// endpoints from s. When token is non-empty every request must carry
// "Authorization: Bearer <token>".
func NewRouter(s *Store, log *slog.Logger, token string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	Register(r, s, log, token)
	return r
}

// Register adds the mock routes to an existing gin router.
func Register(r gin.IRouter, s *Store, log *slog.Logger, token string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("/", requireToken(token))

	// Contents endpoint (GitHub-compatible shape).
	// Returns a single file object for exact path matches, or a directory
	// listing array when the path is a directory prefix.
	authed.GET("/repos/:owner/:repo/contents/*path", func(c *gin.Context) {
		owner := c.Param("owner")
		repo := c.Param("repo")
		path := strings.Trim(c.Param("path"), "/")
		rawBase := fmt.Sprintf("%s://%s/raw/%s/%s", scheme(c.Request), c.Request.Host, owner, repo)

		if status := s.listFailure(owner, repo, path); status != 0 {
			log.Warn("injected listing failure", "owner", owner, "repo", repo, "path", path, "status", status)
			c.JSON(status, gin.H{"message": http.StatusText(status)})
			return
		}

		if content, ok := s.getFile(owner, repo, path); ok {
			download := rawBase + "/" + path
			c.JSON(http.StatusOK, gin.H{
				"type":         "file",
				"name":         path[strings.LastIndex(path, "/")+1:],
				"path":         path,
				"size":         len(content),
				"content":      base64.StdEncoding.EncodeToString([]byte(content)),
				"encoding":     "base64",
				"download_url": download,
			})
			return
		}

		if entries, ok := s.listDir(owner, repo, path, rawBase); ok {
			log.Debug("listed directory", "owner", owner, "repo", repo, "path", path, "entries", len(entries), "ref", c.Query("ref"))
			c.JSON(http.StatusOK, entries)
			return
		}

		c.JSON(http.StatusNotFound, gin.H{
			"message": fmt.Sprintf("path %q not found in %s/%s", path, owner, repo),
		})
	})

	authed.GET("/raw/:owner/:repo/*path", func(c *gin.Context) {
		owner := c.Param("owner")
		repo := c.Param("repo")
		path := strings.Trim(c.Param("path"), "/")

		if status := s.rawFailure(owner, repo, path); status != 0 {
			c.String(status, http.StatusText(status))
			return
		}
		content, ok := s.getFile(owner, repo, path)
		if !ok {
			c.String(http.StatusNotFound, "404: Not Found")
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
	})
}

func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Bad credentials"})
			return
		}
		c.Next()
	}
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
