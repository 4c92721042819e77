// Package detect turns a raw technology-agnostic log stream into classified
// error signals: an ignore gate for known-benign output, an ordered signature
// table for everything else, plus the dedup set and rolling buffers that feed
// the batch reporter.
package detect

import (
	"strings"

	"github.com/vietddude/remedy/internal/core/domain"
)

// Classification is the result of classifying one output line.
type Classification struct {
	Ignore   bool
	Source   domain.ErrorSource
	Severity domain.Severity
}

// Reportable reports whether the line should enter the error pipeline.
func (c Classification) Reportable() bool {
	return !c.Ignore && c.Severity != domain.SeverityInfo
}

// signature maps a lowercase substring to a classification. First match wins.
type signature struct {
	match    string
	source   domain.ErrorSource
	severity domain.Severity
}

// ignoreRules match known-benign output: dev-server banners, deprecation
// notices, HMR chatter, and success phrasing that happens to contain "error".
// A hit here suppresses classification entirely.
var ignoreRules = []string{
	"compiled successfully",
	"webpack compiled",
	"compiled with warnings",
	"build completed",
	"ready in ",
	"dev server running",
	"server running at",
	"listening on",
	"local:",
	"[hmr] connected",
	"[hmr] update",
	"[vite] hot updated",
	"[vite] connected",
	"hot module replacement enabled",
	"[webpack-dev-server]",
	"[nodemon]",
	"watching for file changes",
	"deprecationwarning",
	"npm warn deprecated",
	"warn deprecated",
	"experimentalwarning",
	"punycode",
	"favicon.ico",
	"0 errors",
	"no errors",
	"0 problems",
	"errors fixed",
	"all errors resolved",
	"error boundaries", // React docs phrasing, not a failure
	"error handling",
	"error-free",
}

// signatures is the ordered matching table. Specific families (hot reload,
// framework wrappers, HTTP statuses) come before generic runtime patterns so
// that a framework stack trace is not swallowed by a bare "exception:" rule.
// Ordering within the table is policy, not contract: edit the table to change it.
var signatures = []signature{
	// Hot reload failures
	{"[hmr] failed", domain.SourceHotReload, domain.SeverityError},
	{"hmr error", domain.SourceHotReload, domain.SeverityError},
	{"hot reload failed", domain.SourceHotReload, domain.SeverityError},
	{"fast refresh had to perform a full reload", domain.SourceHotReload, domain.SeverityError},
	{"[vite] internal server error", domain.SourceHotReload, domain.SeverityError},

	// Framework wrappers (React, Next.js, Vue, Angular, Svelte)
	{"invalid hook call", domain.SourceFramework, domain.SeverityError},
	{"too many re-renders", domain.SourceFramework, domain.SeverityError},
	{"hydration failed", domain.SourceFramework, domain.SeverityError},
	{"text content does not match server-rendered html", domain.SourceFramework, domain.SeverityError},
	{"minified react error", domain.SourceFramework, domain.SeverityError},
	{"objects are not valid as a react child", domain.SourceFramework, domain.SeverityError},
	{"rendered more hooks than during the previous render", domain.SourceFramework, domain.SeverityError},
	{"error occurred prerendering page", domain.SourceFramework, domain.SeverityError},
	{"getserversideprops", domain.SourceFramework, domain.SeverityError},
	{"[vue warn]", domain.SourceFramework, domain.SeverityError},
	{"vue error", domain.SourceFramework, domain.SeverityError},
	{"ng0", domain.SourceFramework, domain.SeverityError},
	{"nullinjectorerror", domain.SourceFramework, domain.SeverityError},
	{"svelte error", domain.SourceFramework, domain.SeverityError},

	// Containers / orchestration, before auth rules so daemon output like
	// "pull access denied" stays attributed to docker
	{"oci runtime error", domain.SourceDocker, domain.SeverityError},
	{"no such image", domain.SourceDocker, domain.SeverityError},
	{"image pull backoff", domain.SourceDocker, domain.SeverityError},
	{"imagepullbackoff", domain.SourceDocker, domain.SeverityError},
	{"crashloopbackoff", domain.SourceDocker, domain.SeverityError},
	{"container exited with code", domain.SourceDocker, domain.SeverityError},
	{"docker: error", domain.SourceDocker, domain.SeverityError},
	{"dockerfile parse error", domain.SourceDocker, domain.SeverityError},
	{"error response from daemon", domain.SourceDocker, domain.SeverityError},

	// Auth / token / policy
	{"401 unauthorized", domain.SourcePolicy, domain.SeverityError},
	{"403 forbidden", domain.SourcePolicy, domain.SeverityError},
	{"invalid token", domain.SourcePolicy, domain.SeverityError},
	{"jwt expired", domain.SourcePolicy, domain.SeverityError},
	{"jwt malformed", domain.SourcePolicy, domain.SeverityError},
	{"token expired", domain.SourcePolicy, domain.SeverityError},
	{"authentication failed", domain.SourcePolicy, domain.SeverityError},
	{"access denied", domain.SourcePolicy, domain.SeverityError},
	{"blocked by cors policy", domain.SourcePolicy, domain.SeverityError},
	{"cors error", domain.SourcePolicy, domain.SeverityError},
	{"content security policy", domain.SourcePolicy, domain.SeverityError},

	// HTTP status errors. Soft statuses are warnings, server statuses errors.
	{"404 not found", domain.SourceNetwork, domain.SeverityWarning},
	{"status 404", domain.SourceNetwork, domain.SeverityWarning},
	{"statuscode: 404", domain.SourceNetwork, domain.SeverityWarning},
	{"500 internal server error", domain.SourceBackend, domain.SeverityError},
	{"502 bad gateway", domain.SourceNetwork, domain.SeverityError},
	{"503 service unavailable", domain.SourceNetwork, domain.SeverityError},
	{"504 gateway timeout", domain.SourceNetwork, domain.SeverityError},
	{"status 500", domain.SourceBackend, domain.SeverityError},
	{"statuscode: 500", domain.SourceBackend, domain.SeverityError},
	{"request failed with status code 5", domain.SourceBackend, domain.SeverityError},

	// Browser runtime exceptions
	{"uncaught typeerror", domain.SourceBrowser, domain.SeverityError},
	{"uncaught referenceerror", domain.SourceBrowser, domain.SeverityError},
	{"uncaught (in promise)", domain.SourceBrowser, domain.SeverityError},
	{"cannot read properties of", domain.SourceBrowser, domain.SeverityError},
	{"cannot read property", domain.SourceBrowser, domain.SeverityError},
	{"is not a function", domain.SourceBrowser, domain.SeverityError},
	{"is not defined", domain.SourceBrowser, domain.SeverityError},
	{"typeerror:", domain.SourceBrowser, domain.SeverityError},
	{"referenceerror:", domain.SourceBrowser, domain.SeverityError},
	{"rangeerror:", domain.SourceBrowser, domain.SeverityError},
	{"chunkloaderror", domain.SourceBrowser, domain.SeverityError},

	// Build tools and compilers
	{"module not found", domain.SourceBuild, domain.SeverityError},
	{"cannot find module", domain.SourceBuild, domain.SeverityError},
	{"failed to compile", domain.SourceBuild, domain.SeverityError},
	{"compilation failed", domain.SourceBuild, domain.SeverityError},
	{"build failed", domain.SourceBuild, domain.SeverityError},
	{"error ts", domain.SourceBuild, domain.SeverityError}, // tsc: "error TS2304: ..."
	{"type error:", domain.SourceBuild, domain.SeverityError},
	{"syntaxerror:", domain.SourceBuild, domain.SeverityError},
	{"unexpected token", domain.SourceBuild, domain.SeverityError},
	{"duplicate identifier", domain.SourceBuild, domain.SeverityError},
	{"rollup error", domain.SourceBuild, domain.SeverityError},
	{"esbuild error", domain.SourceBuild, domain.SeverityError},

	// Package managers
	{"npm err!", domain.SourceBuild, domain.SeverityError},
	{"yarn error", domain.SourceBuild, domain.SeverityError},
	{"pnpm err", domain.SourceBuild, domain.SeverityError},
	{"eresolve unable to resolve dependency tree", domain.SourceBuild, domain.SeverityError},
	{"could not resolve dependency", domain.SourceBuild, domain.SeverityError},
	{"unmet peer dependency", domain.SourceBuild, domain.SeverityError},
	{"pip install failed", domain.SourceBuild, domain.SeverityError},
	{"could not find a version that satisfies", domain.SourceBuild, domain.SeverityError},

	// Resource exhaustion
	{"javascript heap out of memory", domain.SourceResource, domain.SeverityError},
	{"out of memory", domain.SourceResource, domain.SeverityError},
	{"oomkilled", domain.SourceResource, domain.SeverityError},
	{"no space left on device", domain.SourceResource, domain.SeverityError},
	{"enospc", domain.SourceResource, domain.SeverityError},
	{"emfile", domain.SourceResource, domain.SeverityError},
	{"too many open files", domain.SourceResource, domain.SeverityError},
	{"resource exhausted", domain.SourceResource, domain.SeverityError},

	// Network failures
	{"econnrefused", domain.SourceNetwork, domain.SeverityError},
	{"econnreset", domain.SourceNetwork, domain.SeverityError},
	{"etimedout", domain.SourceNetwork, domain.SeverityError},
	{"enotfound", domain.SourceNetwork, domain.SeverityError},
	{"getaddrinfo", domain.SourceNetwork, domain.SeverityError},
	{"fetch failed", domain.SourceNetwork, domain.SeverityError},
	{"socket hang up", domain.SourceNetwork, domain.SeverityError},
	{"connection refused", domain.SourceNetwork, domain.SeverityError},
	{"connection reset by peer", domain.SourceNetwork, domain.SeverityError},
	{"err_connection", domain.SourceNetwork, domain.SeverityError},
	{"networkerror", domain.SourceNetwork, domain.SeverityError},

	// Databases
	{"sqlstate", domain.SourceBackend, domain.SeverityError},
	{"duplicate key value violates", domain.SourceBackend, domain.SeverityError},
	{"relation \"", domain.SourceBackend, domain.SeverityError}, // postgres: relation "x" does not exist
	{"deadlock detected", domain.SourceBackend, domain.SeverityError},
	{"mongoerror", domain.SourceBackend, domain.SeverityError},
	{"mongooseerror", domain.SourceBackend, domain.SeverityError},
	{"sequelizedatabaseerror", domain.SourceBackend, domain.SeverityError},
	{"prismaclientknownrequesterror", domain.SourceBackend, domain.SeverityError},
	{"sqlite_error", domain.SourceBackend, domain.SeverityError},
	{"er_parse_error", domain.SourceBackend, domain.SeverityError},
	{"connection to database failed", domain.SourceBackend, domain.SeverityError},

	// Malformed data
	{"unexpected end of json input", domain.SourceBackend, domain.SeverityError},
	{"invalid json", domain.SourceBackend, domain.SeverityError},
	{"json.parse", domain.SourceBackend, domain.SeverityError},
	{"cannot unmarshal", domain.SourceBackend, domain.SeverityError},
	{"malformed", domain.SourceBackend, domain.SeverityError},

	// Server runtime exceptions (Python, Go, JVM, Ruby, Node)
	{"traceback (most recent call last)", domain.SourceBackend, domain.SeverityError},
	{"modulenotfounderror", domain.SourceBackend, domain.SeverityError},
	{"importerror", domain.SourceBackend, domain.SeverityError},
	{"keyerror:", domain.SourceBackend, domain.SeverityError},
	{"attributeerror", domain.SourceBackend, domain.SeverityError},
	{"indentationerror", domain.SourceBackend, domain.SeverityError},
	{"panic:", domain.SourceBackend, domain.SeverityError},
	{"goroutine ", domain.SourceBackend, domain.SeverityError},
	{"nullpointerexception", domain.SourceBackend, domain.SeverityError},
	{"exception in thread", domain.SourceBackend, domain.SeverityError},
	{"undefined method", domain.SourceBackend, domain.SeverityError},
	{"unhandledpromiserejection", domain.SourceBackend, domain.SeverityError},
	{"unhandled exception", domain.SourceBackend, domain.SeverityError},
	{"segmentation fault", domain.SourceBackend, domain.SeverityError},
	{"internal server error", domain.SourceBackend, domain.SeverityError},
	{"stack trace:", domain.SourceBackend, domain.SeverityError},

	// Terminal / process level
	{"command not found", domain.SourceTerminal, domain.SeverityError},
	{"permission denied", domain.SourceTerminal, domain.SeverityError},
	{"exited with code 1", domain.SourceTerminal, domain.SeverityError},
	{"non-zero exit", domain.SourceTerminal, domain.SeverityError},
	{"fatal error", domain.SourceTerminal, domain.SeverityError},

	// Generic fallbacks, last so anything specific above wins
	{"exception:", domain.SourceBackend, domain.SeverityError},
	{"error:", domain.SourceTerminal, domain.SeverityError},
	{"failed:", domain.SourceTerminal, domain.SeverityError},
}

// Classify maps one raw output line to a classification. Pure: a fixed line
// always yields the same result. Ignore rules win over signature rules.
func Classify(line string) Classification {
	lower := strings.ToLower(line)

	for _, rule := range ignoreRules {
		if strings.Contains(lower, rule) {
			return Classification{Ignore: true, Severity: domain.SeverityInfo}
		}
	}

	for _, sig := range signatures {
		if strings.Contains(lower, sig.match) {
			return Classification{Source: sig.source, Severity: sig.severity}
		}
	}

	// Observed but not actionable.
	return Classification{Source: domain.SourceTerminal, Severity: domain.SeverityInfo}
}
