package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"minimart/internal/gate"
	"minimart/internal/utils"

	"github.com/gin-gonic/gin"
)

// SPAHandler serves the built single-page app from staticDir. Page
// navigations go through the access gate using the token cookie; existing
// files are served as-is and anything else falls back to index.html.
type SPAHandler struct {
	staticDir string
	jwtUtil   *utils.JWTUtil
}

// NewSPAHandler creates a new SPAHandler
func NewSPAHandler(staticDir string, jwtUtil *utils.JWTUtil) *SPAHandler {
	return &SPAHandler{staticDir: staticDir, jwtUtil: jwtUtil}
}

func (h *SPAHandler) Serve(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found", "code": CodeNotFound})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed", "code": CodeInvalidInput})
		return
	}

	if file, ok := h.staticFile(path); ok {
		c.File(file)
		return
	}

	role, authenticated := h.session(c)
	decision := gate.Evaluate(role, authenticated, path)
	if !decision.Allow {
		c.Redirect(http.StatusFound, decision.RedirectTo)
		return
	}
	c.File(filepath.Join(h.staticDir, "index.html"))
}

// staticFile resolves path to a regular file inside staticDir.
func (h *SPAHandler) staticFile(path string) (string, bool) {
	if path == "/" {
		return "", false
	}
	full := filepath.Join(h.staticDir, filepath.FromSlash(filepath.Clean("/"+path)))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}

func (h *SPAHandler) session(c *gin.Context) (string, bool) {
	token, err := c.Cookie(TokenCookie)
	if err != nil || token == "" {
		return "", false
	}
	claims, err := h.jwtUtil.ValidateToken(token)
	if err != nil {
		return "", false
	}
	return claims.Role, true
}
