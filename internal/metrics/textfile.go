package metrics

import (
	"net/http"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
)

// Textfile writes a registry in the node-exporter textfile format. The
// collector picks the file up while the device sleeps.
type Textfile struct {
	path     string
	gatherer prom.Gatherer
}

func NewTextfile(path string, g prom.Gatherer) *Textfile {
	return &Textfile{path: path, gatherer: g}
}

func (t *Textfile) Path() string { return t.path }

// Write replaces the textfile atomically.
func (t *Textfile) Write() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStorage, "create metrics directory").
			WithContext("path", t.path).
			Build()
	}
	if err := prom.WriteToTextfile(t.path, t.gatherer); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStorage, "write metrics textfile").
			WithContext("path", t.path).
			Build()
	}
	return nil
}

// HTTPHandler serves the registry for scraping.
func HTTPHandler(g prom.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
