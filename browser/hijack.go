package browser

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps human-readable config strings to Rod protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// trackerDomains are analytics hosts the registry pages load that play no
// part in rendering the search or the profile card.
var trackerDomains = map[string]struct{}{
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"doubleclick.net":       {},
	"hotjar.com":            {},
	"facebook.net":          {},
	"clarity.ms":            {},
}

// isTrackerDomain checks host and its parent domains against trackerDomains.
func isTrackerDomain(host string) bool {
	host = strings.ToLower(host)
	for {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
}

// resourceFilter decides whether a request is failed instead of sent.
type resourceFilter struct {
	blocked       map[proto.NetworkResourceType]struct{}
	blockTrackers bool
}

func newResourceFilter(blockedTypes []string, blockTrackers bool) *resourceFilter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	return &resourceFilter{blocked: blocked, blockTrackers: blockTrackers}
}

func (f *resourceFilter) empty() bool {
	return len(f.blocked) == 0 && !f.blockTrackers
}

func (f *resourceFilter) block(rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := f.blocked[rt]; ok {
		return true
	}
	if f.blockTrackers {
		if u, err := url.Parse(rawURL); err == nil && isTrackerDomain(u.Hostname()) {
			return true
		}
	}
	return false
}

// setupHijack installs a request interceptor that fails blocked requests.
// Returns nil when nothing is blocked; otherwise the caller must Stop the
// returned router.
func setupHijack(page *rod.Page, blockedTypes []string, blockTrackers bool) *rod.HijackRouter {
	f := newResourceFilter(blockedTypes, blockTrackers)
	if f.empty() {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if f.block(ctx.Request.Type(), ctx.Request.URL().String()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()
	return router
}
