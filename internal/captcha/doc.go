// Package captcha resolves the challenges the judicial portals put in
// front of their public search forms: distorted-image codes and
// Cloudflare Turnstile widgets. Solving is delegated to an external
// service; crawl code depends only on the Solver interface.
package captcha
