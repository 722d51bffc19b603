/*
Package routing implements matching of http requests to routes defined by
URL templates, and generating URLs from the same routes.

# URL Templates

A template consists of segments separated by '/'. Every segment is a
sequence of literals and parameters, where parameters are written in curly
braces:

	jobs/job-{title}_{id}

matches /jobs/job-project-manager_1554, with title=project-manager and
id=1554. Literals are compared case-insensitively. Within a segment the
parameters are resolved from right to left, so a parameter can contain the
literal that follows it, as long as the last occurrence is the separator.

The last segment can be a catch-all parameter, {*path}, capturing the rest
of the request path.

# Defaults and Constraints

Routes can have default values. A trailing segment made only of parameters
with defaults can be missing from the request path, and every default is
present in the values of a successful match, including the ones that are
not parameters of the template.

Constraints validate parameter values. A string constraint is a regular
expression that has to match the whole value, ignoring case, e.g. `\d+`.
Values implementing Constraint are used as they are, see Int, UUID, OneOf
and Methods.

# Values

Defaults, constraints and data tokens can be given as maps or as structs,
see ToValues. A nil input stays nil, meaning the route has none, while an
empty map means an explicitly empty set.

# Route Table

Routes are registered in a Table by name. The first registered route that
matches a request wins. The table is safe for concurrent use: lookups never
block, while changes replace the whole set of routes.

	t := routing.NewTable(routing.TableOptions{})
	r, err := routing.NewStaticRoute("docs/{*path}", nil, nil, nil, h)
	if err != nil {
		return err
	}

	if err := t.Add("docs", r); err != nil {
		return err
	}

	http.ListenAndServe(":9090", t)

The route data of the matched route is available to the handler from the
request context, see FromContext.
*/
package routing
