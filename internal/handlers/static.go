package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

const indexFile = "index.html"

// Static serves files from root. "/" maps to index.html; anything that is not
// a regular file inside root is a 404. Cleaning the rooted path removes every
// ".." element, so lookups cannot leave root.
func Static(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		name := path.Clean("/" + c.Request.URL.Path)
		if name == "/" {
			name = "/" + indexFile
		}

		full := filepath.Join(root, filepath.FromSlash(name))
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		c.File(full)
	}
}
