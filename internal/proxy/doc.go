// Package proxy selects an egress proxy for browser sessions.
//
// Portals throttle and block by source address, so each tribunal's
// session can be routed through a proxy chosen from a candidate list.
// The Prober races every candidate against the portal itself and picks
// the one that answered fastest; candidates that fail or answer with a
// non-2xx status are discarded. Selection is best effort: a Selector
// returning an empty address means crawl directly.
package proxy
