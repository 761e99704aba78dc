package cmd

import (
	"time"

	"github.com/mkfa/plannr-relay/internal/config"
	"github.com/mkfa/plannr-relay/internal/helpers"
)

var svcEnvMapString = map[*string]boundEnvVar[string]{
	&config.Service.Addr: {
		Name:        "service-host-addr",
		Description: "The address to serve the service on (default all interfaces in dual-stack serviceMode)",
		Short:       helpers.Ptr("H"),
	},
	&config.Service.Port: {
		Name:        "service-host-port",
		Description: "The port to serve the service on",
		Short:       helpers.Ptr("p"),
	},
	&config.Service.Path: {
		Name:        "service-host-path",
		Description: "The path prefix routes are served under",
		Short:       helpers.Ptr("P"),
	},
}

var svcEnvMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Service.Timeout: {
		Name:        "service-io-timeout",
		Description: "The timeout for I/O operations",
		Short:       helpers.Ptr("t"),
	},
}

var svcEnvMapStringSlice = map[*[]string]boundEnvVar[[]string]{
	&config.Service.CORSOrigins: {
		Name:        "service-cors-origins",
		Description: "Cross-origin callers allowed to use the relay. Same-origin callers are always allowed",
	},
}
