package routesfile

import (
	"context"
	"errors"
	"io/fs"
	"reflect"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/featureroute/routing"
)

type watchResponse struct {
	defs       []Definition
	deletedIDs []string
	err        error
}

// WatchClient reads a route file on request, and reports the changes
// since the previous read. Use the Watch function to initialize instances
// of it.
type WatchClient struct {
	fileName   string
	options    Options
	routes     map[string]routeSpec
	getAll     chan (chan<- watchResponse)
	getUpdates chan (chan<- watchResponse)
	quit       chan struct{}
}

// Watch creates a route file client with file watching. Watch doesn't
// follow file system nodes, it always reads from the file identified by
// the initially provided file name.
func Watch(name string, o Options) *WatchClient {
	c := &WatchClient{
		fileName:   name,
		options:    o,
		getAll:     make(chan (chan<- watchResponse)),
		getUpdates: make(chan (chan<- watchResponse)),
		quit:       make(chan struct{}),
	}

	go c.watch()
	return c
}

func mapSpecs(defs []Definition) map[string]routeSpec {
	m := make(map[string]routeSpec, len(defs))
	for _, d := range defs {
		m[d.Name] = d.spec
	}

	return m
}

func (c *WatchClient) diffStoreRoutes(defs []Definition) (upsert []Definition, deletedIDs []string) {
	for _, d := range defs {
		if prev, ok := c.routes[d.Name]; !ok || !reflect.DeepEqual(prev, d.spec) {
			upsert = append(upsert, d)
		}
	}

	m := mapSpecs(defs)
	for name := range c.routes {
		if _, keep := m[name]; !keep {
			deletedIDs = append(deletedIDs, name)
		}
	}

	c.routes = m
	return
}

func (c *WatchClient) deleteAll() []string {
	var names []string
	for name := range c.routes {
		names = append(names, name)
	}

	c.routes = nil
	return names
}

func (c *WatchClient) loadAll() watchResponse {
	defs, err := Load(c.fileName, c.options)
	if err != nil {
		return watchResponse{err: err}
	}

	c.routes = mapSpecs(defs)
	return watchResponse{defs: defs}
}

func (c *WatchClient) loadUpdates() watchResponse {
	defs, err := Load(c.fileName, c.options)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return watchResponse{deletedIDs: c.deleteAll()}
		}

		return watchResponse{err: err}
	}

	upsert, del := c.diffStoreRoutes(defs)
	return watchResponse{defs: upsert, deletedIDs: del}
}

func (c *WatchClient) watch() {
	for {
		select {
		case req := <-c.getAll:
			req <- c.loadAll()
		case req := <-c.getUpdates:
			req <- c.loadUpdates()
		case <-c.quit:
			return
		}
	}
}

// LoadAll returns the routes found in the file.
func (c *WatchClient) LoadAll() ([]Definition, error) {
	req := make(chan watchResponse)
	c.getAll <- req
	rsp := <-req
	return rsp.defs, rsp.err
}

// LoadUpdate returns the changed routes and the names of the deleted ones,
// since the previous load. When the file was removed, every route is
// reported deleted.
func (c *WatchClient) LoadUpdate() ([]Definition, []string, error) {
	req := make(chan watchResponse)
	c.getUpdates <- req
	rsp := <-req
	return rsp.defs, rsp.deletedIDs, rsp.err
}

// Close stops watching the configured file and providing updates.
func (c *WatchClient) Close() {
	close(c.quit)
}

// Poll registers the routes of the file in the table, and then follows
// the changes of the file until the context is done. Only the initial load
// fails the call.
func (c *WatchClient) Poll(ctx context.Context, t *routing.Table, interval time.Duration) error {
	defs, err := c.LoadAll()
	if err != nil {
		return err
	}

	if err := Register(t, defs); err != nil {
		return err
	}

	log.Infof("route file %s: %d routes registered", c.fileName, len(defs))
	c.Follow(ctx, t, interval)
	return nil
}

// Follow applies the changes of the file to the table at every interval,
// until the context is done. The routes need to be loaded first, with
// LoadAll. Invalid changes are logged, and the table keeps the previous
// routes.
func (c *WatchClient) Follow(ctx context.Context, t *routing.Table, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		upsert, deleted, err := c.LoadUpdate()
		if err != nil {
			log.Errorf("route file %s: failed to load update: %v", c.fileName, err)
			continue
		}

		if len(upsert) == 0 && len(deleted) == 0 {
			continue
		}

		if err := t.Update(named(upsert), deleted); err != nil {
			log.Errorf("route file %s: failed to apply update: %v", c.fileName, err)
			continue
		}

		log.Infof("route file %s: %d routes updated, %d deleted", c.fileName, len(upsert), len(deleted))
	}
}
