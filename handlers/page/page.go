/*
Package page implements a route handler serving a single physical page from
a file system, independent of the request path.

When access checking is enabled, the page is only served when the
authorization callback approves the access to the physical file, in
addition to the authorization of the route itself, done by the
application before routing.
*/
package page

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/featureroute/routing"
)

// Options are shared by the page handlers of an application.
type Options struct {

	// Root is the file system of the pages. Defaults to the working
	// directory.
	Root fs.FS

	// Authorize decides whether the request can access the physical
	// file. Only called for handlers with access checking enabled. When
	// not set, every access is approved.
	Authorize func(r *http.Request, file string) bool
}

// Handler serves a physical page.
type Handler struct {
	file        string
	checkAccess bool
	root        fs.FS
	authorize   func(*http.Request, string) bool
}

// CleanFile converts a page reference to a path valid in an fs.FS. It
// accepts application relative references starting with ~/ and rooted
// paths.
func CleanFile(file string) string {
	file = strings.TrimPrefix(file, "~")
	file = path.Clean("/" + file)
	return strings.TrimPrefix(file, "/")
}

// ValidFile tells whether the page reference can be served.
func ValidFile(file string) bool {
	f := CleanFile(file)
	return f != "." && f != "" && fs.ValidPath(f)
}

// New creates a page handler.
func New(file string, checkAccess bool, o Options) *Handler {
	root := o.Root
	if root == nil {
		root = os.DirFS(".")
	}

	return &Handler{
		file:        CleanFile(file),
		checkAccess: checkAccess,
		root:        root,
		authorize:   o.Authorize,
	}
}

// File returns the cleaned path of the physical page.
func (h *Handler) File() string { return h.file }

// CheckAccess tells whether access to the physical page is checked.
func (h *Handler) CheckAccess() bool { return h.checkAccess }

// Equal compares page handlers by their page and access checking.
func (h *Handler) Equal(other routing.Handler) bool {
	o, ok := other.(*Handler)
	return ok && o.file == h.file && o.checkAccess == h.checkAccess
}

func (h *Handler) ServeRoute(w http.ResponseWriter, r *http.Request, rd *routing.RouteData) {
	if h.checkAccess && h.authorize != nil && !h.authorize(r, h.file) {
		log.Debugf("access denied to page %s", h.file)
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	f, err := h.root.Open(h.file)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Errorf("failed to open page %s: %v", h.file, err)
		}

		http.NotFound(w, r)
		return
	}

	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		log.Errorf("failed to stat page %s: %v", h.file, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if fi.IsDir() {
		http.NotFound(w, r)
		return
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(f)
		if err != nil {
			log.Errorf("failed to read page %s: %v", h.file, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		content = bytes.NewReader(b)
	}

	http.ServeContent(w, r, h.file, fi.ModTime(), content)
}
