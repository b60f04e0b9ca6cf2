package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps human-readable config strings to Rod protocol resource
// types. Stylesheet is absent on purpose: the scroll container is found
// through computed overflow styles.
var configToProto = map[string]proto.NetworkResourceType{
	"Image": proto.NetworkResourceTypeImage,
	"Font":  proto.NetworkResourceTypeFont,
	"Media": proto.NetworkResourceTypeMedia,
}

// blockRules is the lookup form of BrowserConfig.BlockedResources and
// BrowserConfig.BlockedHosts.
type blockRules struct {
	types map[proto.NetworkResourceType]struct{}
	hosts map[string]struct{}
}

func newBlockRules(resourceTypes, hosts []string) blockRules {
	r := blockRules{
		types: make(map[proto.NetworkResourceType]struct{}, len(resourceTypes)),
		hosts: make(map[string]struct{}, len(hosts)),
	}
	for _, name := range resourceTypes {
		if rt, ok := configToProto[name]; ok {
			r.types[rt] = struct{}{}
		} else {
			logger().Warn("ignoring unsupported blocked resource type", "type", name)
		}
	}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.hosts[h] = struct{}{}
		}
	}
	return r
}

func (r blockRules) empty() bool {
	return len(r.types) == 0 && len(r.hosts) == 0
}

// blocksHost checks if a hostname (or any parent domain) is blocked.
func (r blockRules) blocksHost(host string) bool {
	host = strings.ToLower(host)
	if _, ok := r.hosts[host]; ok {
		return true
	}
	// "dc.services.visualstudio.com" → "services.visualstudio.com" → ...
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
		if _, ok := r.hosts[host]; ok {
			return true
		}
	}
}

func (r blockRules) blocks(rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := r.types[rt]; ok {
		return true
	}
	if len(r.hosts) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return r.blocksHost(u.Hostname())
}

// setupHijack installs a request interceptor on the page that fails blocked
// requests and lets everything else through.
//
// Returns the running HijackRouter so the caller can stop it on cleanup.
// Returns nil if there is nothing to block.
func setupHijack(page *rod.Page, rules blockRules) *rod.HijackRouter {
	if rules.empty() {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if rules.blocks(ctx.Request.Type(), ctx.Request.URL().String()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks until router.Stop() is called.
	go router.Run()

	return router
}
