package domain

const (
	DefaultConfigFile                 = "composer.yaml"
	DefaultAppDirName                 = "composer"
	DefaultIndexFile                  = "index.db"
	DefaultManifestsDirName           = "manifests"
	DefaultFetchCacheTTLSeconds       = 60
	DefaultFetchTimeoutSeconds        = 30
	DefaultFetchRetryMax              = 2
	DefaultFetchMaxBodyBytes          = 8 * 1024 * 1024
	DefaultWatchManifests             = true
	DefaultObservabilityListenAddress = "127.0.0.1:9464"
	DefaultObservabilityMetrics       = true
	DefaultLogLevel                   = "info"
	DefaultResolveWaitSeconds         = 30
)

const (
	// LocalManifestScheme is the locator scheme of manifests stored on disk.
	LocalManifestScheme = "local"
	// AlternateMediaType is the link type registry pages use to point at the
	// machine readable document.
	AlternateMediaType = "application/yaml+aviutl2-extension-composer"
	// AlternateMarker prefixes an alternate document URL embedded in page text.
	AlternateMarker = "aviutl2-extension-composer:alternate:"
)

// AppVersion and Build are set at build time via -ldflags.
var (
	AppVersion = "dev"
	Build      = "unknown"
)

// DefaultUserAgent identifies the transport to registry hosts.
func DefaultUserAgent() string {
	return DefaultAppDirName + "/" + AppVersion
}
