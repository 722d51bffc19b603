/*
Package controller implements a route handler dispatching requests to
application controllers.

The controller and the action are selected by the route values
"controller" and "action", ignoring case. Routes can restrict the lookup
to a set of namespaces, with the data token "Namespaces", containing a
list of namespace names.
*/
package controller

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/featureroute/routing"
)

const (
	// ControllerKey is the route value holding the controller name.
	ControllerKey = "controller"

	// ActionKey is the route value holding the action name.
	ActionKey = "action"

	// NamespacesToken is the data token restricting the controller lookup.
	NamespacesToken = "Namespaces"
)

// Action serves a request with the route values of the match.
type Action func(w http.ResponseWriter, r *http.Request, values routing.Values)

// Controller is a set of actions, by name.
type Controller map[string]Action

type registered struct {
	namespace string
	name      string
	actions   map[string]Action
}

// Registry holds the controllers of an application. Safe for concurrent
// use.
type Registry struct {
	mu          sync.RWMutex
	controllers map[string][]*registered
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string][]*registered)}
}

// Register adds a controller without a namespace.
func (r *Registry) Register(name string, c Controller) error {
	return r.RegisterNamespace("", name, c)
}

// RegisterNamespace adds a controller under a namespace. The name has to
// be unique within the namespace, ignoring case.
func (r *Registry) RegisterNamespace(namespace, name string, c Controller) error {
	if name == "" {
		return routing.InvalidConfiguration("controller name cannot be empty")
	}

	actions := make(map[string]Action, len(c))
	for an, a := range c {
		if a == nil {
			return routing.InvalidConfiguration("controller %s: nil action %s", name, an)
		}

		actions[strings.ToLower(an)] = a
	}

	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rc := range r.controllers[key] {
		if strings.EqualFold(rc.namespace, namespace) {
			return routing.InvalidConfiguration("duplicate controller: %s", qualified(namespace, name))
		}
	}

	r.controllers[key] = append(r.controllers[key], &registered{
		namespace: namespace,
		name:      name,
		actions:   actions,
	})

	return nil
}

func qualified(namespace, name string) string {
	if namespace == "" {
		return name
	}

	return namespace + "." + name
}

// Names returns the qualified names of the registered controllers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, rcs := range r.controllers {
		for _, rc := range rcs {
			names = append(names, qualified(rc.namespace, rc.name))
		}
	}

	sort.Strings(names)
	return names
}

// errAmbiguous is returned by lookup when more namespaces define the same
// controller
type errAmbiguous []string

func (e errAmbiguous) Error() string {
	return "ambiguous controller: " + strings.Join(e, ", ")
}

func (r *Registry) lookup(name string, namespaces []string) (*registered, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []*registered
	for _, rc := range r.controllers[strings.ToLower(name)] {
		if len(namespaces) == 0 {
			found = append(found, rc)
			continue
		}

		for _, ns := range namespaces {
			if strings.EqualFold(ns, rc.namespace) {
				found = append(found, rc)
				break
			}
		}
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		names := make([]string, len(found))
		for i, rc := range found {
			names[i] = qualified(rc.namespace, rc.name)
		}

		sort.Strings(names)
		return nil, errAmbiguous(names)
	}
}

// Lookup finds the action of a controller, ignoring case. When namespaces
// are provided, only the controllers registered under them are
// considered.
func (r *Registry) Lookup(controller, action string, namespaces ...string) (Action, bool) {
	rc, err := r.lookup(controller, namespaces)
	if err != nil || rc == nil {
		return nil, false
	}

	a, ok := rc.actions[strings.ToLower(action)]
	return a, ok
}

// Handler dispatches requests to the controllers of a registry.
type Handler struct {
	registry *Registry
}

// New creates a handler. A nil registry is replaced by an empty one.
func New(r *Registry) *Handler {
	if r == nil {
		r = NewRegistry()
	}

	return &Handler{registry: r}
}

// Registry returns the registry used by the handler.
func (h *Handler) Registry() *Registry { return h.registry }

// Equal compares controller handlers by their registry.
func (h *Handler) Equal(other routing.Handler) bool {
	o, ok := other.(*Handler)
	return ok && o.registry == h.registry
}

func namespaces(dataTokens routing.Values) []string {
	switch ns := dataTokens[NamespacesToken].(type) {
	case []string:
		return ns
	case string:
		return []string{ns}
	case []any:
		var s []string
		for _, n := range ns {
			if ni, ok := n.(string); ok {
				s = append(s, ni)
			}
		}

		return s
	default:
		return nil
	}
}

func (h *Handler) ServeRoute(w http.ResponseWriter, r *http.Request, rd *routing.RouteData) {
	name, _ := rd.Values.String(ControllerKey)
	action, _ := rd.Values.String(ActionKey)
	if name == "" || action == "" {
		log.Debugf("missing controller or action in route values: %v", rd.Values)
		http.NotFound(w, r)
		return
	}

	rc, err := h.registry.lookup(name, namespaces(rd.DataTokens))
	if err != nil {
		log.Errorf("failed to dispatch %s.%s: %v", name, action, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if rc == nil {
		http.NotFound(w, r)
		return
	}

	a, ok := rc.actions[strings.ToLower(action)]
	if !ok {
		http.NotFound(w, r)
		return
	}

	a(w, r, rd.Values)
}
