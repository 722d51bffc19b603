/*
Package routesfile creates feature toggle routes from a YAML route file.

The file lists the routes, in the order of matching. Every route has a
name, a URL template, the toggle predicates, and the two variants. A
variant is served either by a physical page or by the application
controllers:

	routes:
	- name: JobDetails
	  url: jobs/job-{title}_{id}
	  toggle:
	  - name: Secure
	  current:
	    page: {file: pages/jobs.html, checkAccess: true}
	    constraints: {id: '\d+'}
	    dataTokens: {routename: JobsPages}
	  experimental:
	    controller: {namespaces: [Careers]}
	    defaults: {controller: Jobs, action: Details}
	    dataTokens: {routename: JobsMvc}

The toggle lists predicate definitions, all of which need to match to
select the experimental variant. See the predicates package for the
available ones.

Every route is built with the toggle package builder, so invalid routes
are reported when the file is loaded. The Watch client re-reads the file,
and applies the changes to a route table.
*/
package routesfile
