// Package fleet holds the shared data model for hosts, host groups, and
// remote-execution results used by the connection pool, remote executor,
// and deploy manager.
package fleet

import "strings"

// SSHParams holds the connection parameters for a single host.
type SSHParams struct {
	Address        string
	Port           int
	User           string
	PrivateKeyPEM  []byte
	PrivateKeyPath string
}

// Host is a single fleet member. Identity is normalized to lower-case for
// keying (connection pool, registry lookups); the executor's audit trail
// records targets as the caller gave them.
type Host struct {
	Identity string
	SSH      SSHParams
}

// Key returns the lower-cased identity used as a map/pool key.
func (h Host) Key() string {
	return strings.ToLower(h.Identity)
}

// Group is a named set of host identities.
type Group struct {
	Name  string
	Hosts []string
}

// Registry resolves targets (single host, group name, or literal list) into
// a concrete list of Host values.
type Registry struct {
	hosts  map[string]Host
	groups map[string][]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		hosts:  make(map[string]Host),
		groups: make(map[string][]string),
	}
}

// AddHost registers a host, keyed by its normalized identity.
func (r *Registry) AddHost(h Host) {
	r.hosts[h.Key()] = h
}

// AddGroup registers a named group of host identities.
func (r *Registry) AddGroup(name string, members []string) {
	r.groups[name] = members
}

// Host looks up a single host by identity (case-insensitive).
func (r *Registry) Host(identity string) (Host, bool) {
	h, ok := r.hosts[strings.ToLower(identity)]
	return h, ok
}

// Resolve implements the target-resolution rule:
//   - []string input → itself
//   - a known group name → its member identities
//   - otherwise → a single-element list containing the input
//
// The returned identities are resolved to Host values; an identity with no
// registered Host is skipped (it cannot be dialed).
func (r *Registry) Resolve(target any) []Host {
	var identities []string

	switch t := target.(type) {
	case []string:
		identities = t
	case string:
		if members, ok := r.groups[t]; ok {
			identities = members
		} else {
			identities = []string{t}
		}
	default:
		return nil
	}

	out := make([]Host, 0, len(identities))
	for _, id := range identities {
		if h, ok := r.Host(id); ok {
			out = append(out, h)
		}
	}
	return out
}
