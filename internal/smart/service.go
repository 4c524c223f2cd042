package smart

import (
	"fmt"
	"net/http"
)

// Service identifies one of the four smart-protocol operations: ref
// discovery or pack exchange, for the upload (fetch) or receive (push)
// direction.
type Service int

const (
	// ServiceUploadPackLS is ref discovery for fetch.
	ServiceUploadPackLS Service = iota
	// ServiceUploadPack is the pack exchange for fetch.
	ServiceUploadPack
	// ServiceReceivePackLS is ref discovery for push.
	ServiceReceivePackLS
	// ServiceReceivePack is the pack exchange for push.
	ServiceReceivePack
)

// route is the fixed smart-HTTP mapping for one service: the URL suffix
// appended to the repository base, the HTTP method, and the request
// content type for POST exchanges.
type route struct {
	suffix      string
	method      string
	contentType string
}

var routes = [...]route{
	ServiceUploadPackLS: {
		suffix: "/info/refs?service=git-upload-pack",
		method: http.MethodGet,
	},
	ServiceUploadPack: {
		suffix:      "/git-upload-pack",
		method:      http.MethodPost,
		contentType: "application/x-git-upload-pack-request",
	},
	ServiceReceivePackLS: {
		suffix: "/info/refs?service=git-receive-pack",
		method: http.MethodGet,
	},
	ServiceReceivePack: {
		suffix:      "/git-receive-pack",
		method:      http.MethodPost,
		contentType: "application/x-git-receive-pack-request",
	},
}

// route returns the table entry for s. Requesting a service outside the
// table is a programming error, not a runtime condition.
func (s Service) route() route {
	if s < 0 || int(s) >= len(routes) {
		panic(fmt.Sprintf("smart: unknown service %d", int(s)))
	}
	return routes[s]
}

func (s Service) String() string {
	switch s {
	case ServiceUploadPackLS:
		return "git-upload-pack-ls"
	case ServiceUploadPack:
		return "git-upload-pack"
	case ServiceReceivePackLS:
		return "git-receive-pack-ls"
	case ServiceReceivePack:
		return "git-receive-pack"
	}
	return fmt.Sprintf("smart.Service(%d)", int(s))
}
