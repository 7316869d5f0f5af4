package resolver

import (
	"net/url"
	"strings"
)

// Vars fills the placeholders of endpoint templates.
type Vars struct {
	// Wallet replaces {wallet}. It is tried as given and lowercased.
	Wallet string
	// AppendWallet adds wallet=<Wallet> to templates without {wallet}.
	AppendWallet bool
	// Values replaces any other {name} placeholder.
	Values map[string]string
}

// Expand turns roots × templates × wallet variants into an ordered,
// de-duplicated list of absolute URLs. Absolute templates ignore roots.
// Templates that need a wallet are dropped when Vars.Wallet is empty.
func Expand(roots, templates []string, vars Vars) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	for _, tmpl := range templates {
		tmpl = strings.TrimSpace(tmpl)
		if tmpl == "" {
			continue
		}
		for _, base := range joinRoots(roots, tmpl) {
			base = fill(base, vars.Values)
			if strings.Contains(base, "{wallet}") {
				if vars.Wallet == "" {
					continue
				}
				for _, w := range walletVariants(vars.Wallet) {
					add(substitute(base, "wallet", w))
				}
				continue
			}
			if vars.AppendWallet && vars.Wallet != "" {
				for _, w := range walletVariants(vars.Wallet) {
					add(appendQuery(base, "wallet", w))
				}
				continue
			}
			add(base)
		}
	}
	return out
}

func joinRoots(roots []string, tmpl string) []string {
	if isAbsolute(tmpl) {
		return []string{tmpl}
	}
	var out []string
	for _, root := range roots {
		root = strings.TrimRight(strings.TrimSpace(root), "/")
		if root == "" {
			continue
		}
		out = append(out, root+"/"+strings.TrimLeft(tmpl, "/"))
	}
	return out
}

func isAbsolute(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func walletVariants(wallet string) []string {
	w := strings.TrimSpace(wallet)
	if lower := strings.ToLower(w); lower != w {
		return []string{w, lower}
	}
	return []string{w}
}

func fill(s string, values map[string]string) string {
	for k, v := range values {
		s = substitute(s, k, v)
	}
	return s
}

// substitute escapes the value for the part of the URL it lands in.
func substitute(s, name, value string) string {
	ph := "{" + name + "}"
	for {
		i := strings.Index(s, ph)
		if i < 0 {
			return s
		}
		esc := url.PathEscape(value)
		if q := strings.Index(s, "?"); q >= 0 && q < i {
			esc = url.QueryEscape(value)
		}
		s = s[:i] + esc + s[i+len(ph):]
	}
}

func appendQuery(u, key, value string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + key + "=" + url.QueryEscape(value)
}
